// Package httputil provides the retrying HTTP plumbing used to talk to the
// external viewer process.
//
// [Retry] repeats an operation according to a [Policy] when it fails with a
// [RetryableError]. The viewer command channel uses [Once] with a one second
// delay; [Backoff] doubles the delay after each retry.
//
//	err := httputil.Retry(ctx, httputil.Once(time.Second), func() error {
//	    _, err := httputil.Get(ctx, client, url)
//	    return err
//	})
//
// [Get] classifies failures: connection errors and 5xx responses are
// retryable, other non-2xx responses are not.
package httputil
