// Package persist is the key/value surface the client uses to keep its
// credential and session handle across restarts.
package persist

import "context"

// Keys used by the session manager.
const (
	KeyCredential    = "credential"
	KeySessionHandle = "session_handle"
)

// KeyValue is a minimal string store. A missing key is reported as
// ok=false with a nil error.
type KeyValue interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
