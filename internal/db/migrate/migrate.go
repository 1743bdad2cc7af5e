// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gomigrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/db/migrations"
)

// LockKey guards concurrent migration runs across replicas.
const LockKey = "pricing:migrate"

// Locker serialises work across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Runner applies migrations to one database.
type Runner struct {
	DatabaseURL string
	Logger      zerolog.Logger
	Locker      Locker
	LockTTL     time.Duration
}

// Up applies all pending migrations. When a Locker is set the run is guarded
// by LockKey so only one replica migrates at a time.
func (r Runner) Up(ctx context.Context) error {
	run := func(context.Context) error {
		return r.apply(func(m *gomigrate.Migrate) error { return m.Up() })
	}
	if r.Locker == nil {
		return run(ctx)
	}
	ttl := r.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return r.Locker.WithLock(ctx, LockKey, ttl, run)
}

// Down rolls back the given number of steps.
func (r Runner) Down(steps int) error {
	if steps <= 0 {
		return errors.New("migrate: steps must be positive")
	}
	return r.apply(func(m *gomigrate.Migrate) error { return m.Steps(-steps) })
}

// Version reports the current schema version.
func (r Runner) Version() (uint, bool, error) {
	m, err := r.open()
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(m)
	v, dirty, err := m.Version()
	if errors.Is(err, gomigrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (r Runner) apply(step func(*gomigrate.Migrate) error) error {
	m, err := r.open()
	if err != nil {
		return err
	}
	defer closeMigrate(m)
	if err := step(m); err != nil {
		if errors.Is(err, gomigrate.ErrNoChange) {
			r.Logger.Info().Msg("schema up to date")
			return nil
		}
		return fmt.Errorf("migrate: %w", err)
	}
	if v, dirty, err := m.Version(); err == nil {
		r.Logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema migrated")
	}
	return nil
}

func (r Runner) open() (*gomigrate.Migrate, error) {
	if strings.TrimSpace(r.DatabaseURL) == "" {
		return nil, errors.New("migrate: database url is required")
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: open source: %w", err)
	}
	m, err := gomigrate.NewWithSourceInstance("iofs", src, DriverURL(r.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("migrate: open database: %w", err)
	}
	return m, nil
}

// DriverURL rewrites a postgres URL to the pgx5 scheme registered by the
// golang-migrate pgx driver.
func DriverURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func closeMigrate(m *gomigrate.Migrate) {
	_, _ = m.Close()
}
