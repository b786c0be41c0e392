package errors

import (
	"strings"
	"unicode"
)

// ValidateFilename validates a database or image filename supplied by a caller.
//
// The rules are conservative:
//   - No empty names
//   - No control characters or null bytes
//   - Maximum length of 4096 characters
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFilename, "filename cannot be empty")
	}

	const maxLength = 4096
	if len(name) > maxLength {
		return New(ErrCodeInvalidFilename, "filename too long (max %d characters)", maxLength)
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidFilename, "filename contains invalid control characters")
		}
	}
	return nil
}

// ValidateFigureName validates a figure name. Figure names are used as keys in
// the persisted state document and as default image filenames.
func ValidateFigureName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidArgument, "figure name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidArgument, "figure name contains invalid control characters")
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidArgument, "figure name cannot contain path separators: %q", name)
	}
	return nil
}

// ValidateCommand validates a viewer command string before it is sent over
// the local command channel.
func ValidateCommand(cmd string) error {
	if strings.TrimSpace(cmd) == "" {
		return New(ErrCodeInvalidArgument, "viewer command cannot be empty")
	}
	if strings.ContainsRune(cmd, '\x00') {
		return New(ErrCodeInvalidArgument, "viewer command contains a null byte")
	}
	return nil
}
