package pod

import (
	"context"
	"time"
)

// retryAttempts and retryBaseDelay ground the "default 3 attempts" backoff
// spec.md §7 asks for at the Pod layer for backends without a dedicated
// SDK retryer (FilePOD, BadgerPOD); the S3 backend instead configures
// aws-sdk-go-v2's own retryer in OpenS3.
const (
	retryAttempts  = 3
	retryBaseDelay = 20 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times, doubling a small base delay
// between attempts, stopping early if ctx is done or fn stops returning a
// transient error (as reported by transient).
func withRetry(ctx context.Context, transient func(error) bool, fn func() error) error {
	var err error
	delay := retryBaseDelay
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(); err == nil || !transient(err) {
			return err
		}
		if attempt == retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
