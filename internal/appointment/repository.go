package appointment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrLookupPanic         = errors.New("lookup panicked")
)

// Conn is a connection held exclusively by one lookup.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// ConnectionProvider hands out one Conn per lookup. Whoever acquires a Conn
// must Release it exactly once.
type ConnectionProvider interface {
	Acquire(ctx context.Context) (Conn, error)
}
