package appointment

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

type Service struct {
	provider ConnectionProvider
	builder  sq.StatementBuilderType
	logger   zerolog.Logger
}

func NewService(provider ConnectionProvider, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:   logger.With().Str("component", "appointment_lookup").Logger(),
	}
}

// Lookup runs at most one single-row query for q and never returns an error
// or panics; every failure comes back as an Error result. A connection is
// acquired only when q is usable, and is released before Lookup returns.
func (s *Service) Lookup(ctx context.Context, q Query) (res Result) {
	if q == nil || !q.valid() {
		return InsufficientInput{}
	}

	logger := s.logger.With().Str("strategy", q.strategy()).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("lookup panicked")
			res = Error{Err: fmt.Errorf("%w: %v", ErrLookupPanic, r)}
		}
	}()

	query, args, err := buildSelect(s.builder, q)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build query")
		return Error{Err: fmt.Errorf("build query: %w", err)}
	}

	logger.Debug().Str("sql", query).Int("args", len(args)).Msg("build query")

	conn, err := s.provider.Acquire(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to acquire connection")
		return Error{Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer conn.Release()

	appt, err := scanAppointment(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			logger.Debug().Msg("no matching appointment")
			return NotFound{}
		}
		logger.Warn().Err(err).Msg("failed query execute")
		return Error{Err: fmt.Errorf("query appointment: %w", err)}
	}

	logger.Debug().Int64("appointment_id", appt.ID).Msg("appointment found")
	return Found{Appointment: *appt}
}
