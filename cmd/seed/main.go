package main

import (
	"context"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/appointment-lookup/internal/config"
	"github.com/hackgods/appointment-lookup/internal/db"
	"github.com/hackgods/appointment-lookup/internal/logging"
)

// tokenTTL matches the validity window granted when an appointment is booked.
const tokenTTL = 24 * time.Hour

var departments = []string{
	"内科",
	"外科",
	"儿科",
	"妇产科",
	"骨科",
	"眼科",
	"皮肤科",
	"口腔科",
	"耳鼻喉科",
	"中医科",
}

type seedRow struct {
	Username      string
	IDCard        string
	Department    *string
	Date          *time.Time
	Time          pgtype.Time
	AccessToken   string
	TokenExpireAt time.Time
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("prod", "info").Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Msg("seed starting")

	count := config.GetInt("SEED_COUNT", 1000)
	expiredEvery := config.GetInt("SEED_EXPIRED_EVERY", 5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	now := time.Now()

	if err := seedAppointments(context.Background(), logger, pool, faker, now, count, expiredEvery); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Msg("seed complete")
}

// seedAppointments writes count rows; every expiredEvery-th row gets a token
// that has already expired so lookups can hit both outcomes.
func seedAppointments(ctx context.Context, logger zerolog.Logger, pool *pgxpool.Pool, faker *gofakeit.Faker, now time.Time, count, expiredEvery int) error {
	logger.Info().Int("count", count).Msg("seeding appointments")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			row := fakeAppointment(faker, now, expiredEvery > 0 && i%expiredEvery == 0)

			_, err := tx.Exec(ctx, `
				INSERT INTO appointment (username, id_card, department, date, time, access_token, token_expire_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, row.Username, row.IDCard, row.Department, row.Date, row.Time, row.AccessToken, row.TokenExpireAt)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			if i < 3 {
				logger.Info().Str("access_token", row.AccessToken).Str("username", row.Username).Msg("sample appointment")
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("seeded", end).Int("total", count).Msg("appointments seeded")
	}

	return nil
}

func fakeAppointment(faker *gofakeit.Faker, now time.Time, expired bool) seedRow {
	row := seedRow{
		Username:      faker.Name(),
		IDCard:        fakeIDCard(faker),
		AccessToken:   newAccessToken(),
		TokenExpireAt: now.Add(tokenTTL),
	}
	if expired {
		row.TokenExpireAt = now.Add(-time.Duration(faker.Number(1, 72)) * time.Hour)
	}

	// Department, date and time are optional at booking.
	if faker.Number(0, 9) > 0 {
		dept := departments[faker.Number(0, len(departments)-1)]
		row.Department = &dept
	}
	if faker.Number(0, 9) > 1 {
		d := now.AddDate(0, 0, faker.Number(1, 30)).Truncate(24 * time.Hour)
		row.Date = &d

		slot := time.Duration(faker.Number(8, 16))*time.Hour + time.Duration(30*faker.Number(0, 1))*time.Minute
		row.Time = pgtype.Time{Microseconds: slot.Microseconds(), Valid: true}
	}

	return row
}

// fakeIDCard produces an 18 character resident ID number: 17 digits and a
// check character that may be X.
func fakeIDCard(faker *gofakeit.Faker) string {
	check := "0123456789X"
	return faker.Numerify("#################") + string(check[faker.Number(0, len(check)-1)])
}

// newAccessToken issues a 32 character hex token.
func newAccessToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
