package archive

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/chronictectonic/underworld2/pkg/httputil"
)

func TestOpenRequiresURI(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Error("Open without a URI should fail")
	}
}

func TestOpenRetriesPingWithBackoff(t *testing.T) {
	var waits []time.Duration
	policy := httputil.Backoff(3, time.Second)
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	// Nothing listens on port 1; each ping fails once server selection
	// times out.
	_, err := Open(context.Background(), Config{
		URI:   "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50&connectTimeoutMS=50",
		Retry: policy,
	})
	if err == nil {
		t.Fatal("Open should fail without a server")
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !slices.Equal(waits, want) {
		t.Errorf("waits = %v, want %v", waits, want)
	}
}
