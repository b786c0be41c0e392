package glucifer

import (
	"runtime/debug"

	"github.com/chronictectonic/underworld2/pkg/errors"
)

// recoverable reports whether err is a runtime failure of a collaborator
// (engine, database or viewer). Those are logged and dropped so the calling
// figure operation carries on without output. Validation errors, malformed
// state and cancellation are returned.
func recoverable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeEngineUnavailable, errors.ErrCodeEngineFailed,
		errors.ErrCodeViewerFailed, errors.ErrCodeDatabase:
		return true
	}
	return false
}

// dropRuntime logs a recoverable err and returns nil; other errors pass through.
func (s *Store) dropRuntime(op string, err error) error {
	if err == nil || !recoverable(err) {
		return err
	}
	s.logger.Error(op+" failed", "err", err)
	s.logger.Debug(op+" failed", "stack", string(debug.Stack()))
	return nil
}
