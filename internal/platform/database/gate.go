package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Connect opens the store, retrying up to attempts times with a constant delay
// between attempts. A malformed or unsupported URL fails immediately.
func Connect(ctx context.Context, opts Options, attempts int, delay time.Duration, log zerolog.Logger) (*gorm.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	if _, err := Dialector(opts.URL); err != nil {
		return nil, err
	}

	var (
		db      *gorm.DB
		attempt int
	)
	operation := func() error {
		attempt++
		opened, err := Open(ctx, opts)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).Msg("database connection failed")
			return err
		}
		db = opened
		log.Info().Int("attempt", attempt).Msg("database connection established")
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempt, err)
	}
	return db, nil
}
