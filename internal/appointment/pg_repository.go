package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolProvider hands out pooled Postgres connections.
type PoolProvider struct {
	pool *pgxpool.Pool
}

// NewPoolProvider wraps an open pool.
func NewPoolProvider(pool *pgxpool.Pool) *PoolProvider {
	return &PoolProvider{pool: pool}
}

// Acquire checks out one connection. The caller must release it.
func (p *PoolProvider) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var department *string
	var date pgtype.Date
	var clock pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.IDCard,
		&department,
		&date,
		&clock,
		&a.AccessToken,
		&a.TokenExpireAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Department = department
	if date.Valid {
		d := date.Time
		a.Date = &d
	}
	if clock.Valid {
		t := time.Duration(clock.Microseconds) * time.Microsecond
		a.Time = &t
	}
	return &a, nil
}
