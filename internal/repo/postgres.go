package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
)

// Postgres is the pgx backed Store.
type Postgres struct {
	*dbgen.Queries
	Pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps pool with the generated queries.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Queries: dbgen.New(pool), Pool: pool}
}

// Ping checks the pool connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// CommitRuleRevision bumps the profile version with a compare-and-swap and
// applies the rule changes in the same transaction. The version update takes
// the row lock first so concurrent revisions of one profile serialise.
func (p *Postgres) CommitRuleRevision(ctx context.Context, rev RuleRevision) (int64, error) {
	var next int64
	err := p.inTx(ctx, func(q *dbgen.Queries) error {
		n, err := q.BumpProfileVersion(ctx, dbgen.BumpProfileVersionParams{ID: rev.ProfileID, Version: rev.ExpectedVersion})
		if err != nil {
			return fmt.Errorf("bump profile version: %w", err)
		}
		if n == 0 {
			return ErrVersionConflict
		}
		for _, d := range rev.Deletes {
			if _, err := q.DeleteRule(ctx, d); err != nil {
				return fmt.Errorf("delete rule %s/%d: %w", d.ArticleCode, d.MinQuantity, err)
			}
		}
		for _, u := range rev.Upserts {
			if err := q.UpsertRule(ctx, u); err != nil {
				return fmt.Errorf("upsert rule %s/%d: %w", u.ArticleCode, u.MinQuantity, err)
			}
		}
		next = rev.ExpectedVersion + 1
		return nil
	})
	return next, err
}

// SaveProfileMeta holds the profile row lock while counting assignments, so
// an assignment insert either commits first and is counted or waits and then
// sees the profile as global.
func (p *Postgres) SaveProfileMeta(ctx context.Context, arg dbgen.UpdateProfileMetaParams) (dbgen.PriceProfile, error) {
	var row dbgen.PriceProfile
	err := p.inTx(ctx, func(q *dbgen.Queries) error {
		current, err := q.LockProfile(ctx, arg.ID)
		if err != nil {
			return err
		}
		if arg.IsGlobal && !current.IsGlobal {
			n, err := q.CountAssignmentsByProfile(ctx, arg.ID)
			if err != nil {
				return fmt.Errorf("count assignments: %w", err)
			}
			if n > 0 {
				return ErrProfileAssigned
			}
		}
		row, err = q.UpdateProfileMeta(ctx, arg)
		return err
	})
	return row, err
}

// ReplaceAssignments deletes the client's assignments and inserts profileIDs.
func (p *Postgres) ReplaceAssignments(ctx context.Context, clientID string, profileIDs []string) error {
	return p.inTx(ctx, func(q *dbgen.Queries) error {
		if err := q.DeleteAssignmentsByClient(ctx, clientID); err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		for _, id := range profileIDs {
			n, err := q.InsertAssignment(ctx, dbgen.InsertAssignmentParams{ClientID: clientID, ProfileID: id})
			if err != nil {
				return fmt.Errorf("insert assignment %s: %w", id, err)
			}
			if n == 0 {
				return fmt.Errorf("insert assignment %s: %w", id, ErrNotAssignable)
			}
		}
		return nil
	})
}

// ReplaceSpecialPrices deletes the client's special prices and upserts rows.
func (p *Postgres) ReplaceSpecialPrices(ctx context.Context, clientID string, rows []dbgen.UpsertSpecialPriceParams) error {
	return p.inTx(ctx, func(q *dbgen.Queries) error {
		if _, err := q.DeleteSpecialPricesByClient(ctx, clientID); err != nil {
			return fmt.Errorf("clear special prices: %w", err)
		}
		for _, row := range rows {
			row.ClientID = clientID
			if _, err := q.UpsertSpecialPrice(ctx, row); err != nil {
				return fmt.Errorf("upsert special price %s: %w", row.ArticleCode, err)
			}
		}
		return nil
	})
}

func (p *Postgres) inTx(ctx context.Context, fn func(q *dbgen.Queries) error) error {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(p.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
