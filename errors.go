package teamup

import (
	"errors"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
	"github.com/huykn/teamup-client/storage"
)

// ErrNotFound is returned when a persisted snapshot does not exist.
var ErrNotFound = storage.ErrNotFound

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = cache.ErrCacheClosed

// ErrInvalidConfig is returned when the client configuration is invalid.
var ErrInvalidConfig = errors.New("invalid client configuration")

// ErrUnauthenticated is returned when an operation needs a session and
// none can be established.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrRedisConnection is returned when Redis connection fails.
var ErrRedisConnection = errors.New("redis connection failed")

// Error is the typed API error; see httpclient.Error.
type Error = httpclient.Error
