package traffic

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrReadTimeout is returned by Conn.Read when no message arrived in time.
	// It is not a failure: the connection stays usable.
	ErrReadTimeout = errors.New("traffic feed read timeout")

	// ErrClosed is returned by Conn.Read once the peer closed the connection.
	ErrClosed = errors.New("traffic feed closed")
)

// Conn is an established traffic feed connection.
type Conn interface {
	// Ping performs a liveness round trip, bounded by ctx.
	Ping(ctx context.Context) error

	// Read blocks for the next message for at most timeout, or until ctx is
	// done, in which case it returns ctx.Err().
	Read(ctx context.Context, timeout time.Duration) ([]byte, error)

	Close() error
}

// Dialer opens traffic feed connections.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}
