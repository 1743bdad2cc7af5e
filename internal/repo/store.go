package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
)

// ErrVersionConflict is returned when a rule revision was computed against a
// profile version that has since moved on.
var ErrVersionConflict = errors.New("repo: profile version conflict")

// ErrProfileAssigned is returned when a profile with client assignments would
// become global.
var ErrProfileAssigned = errors.New("repo: profile is assigned to clients")

// ErrNotAssignable is returned when an assignment targets a profile that is
// missing or global at write time.
var ErrNotAssignable = errors.New("repo: profile cannot be assigned")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// RuleRevision is an atomic change to one profile's rule set. It is applied
// only when the stored profile version still equals ExpectedVersion.
type RuleRevision struct {
	ProfileID       string
	ExpectedVersion int64
	Upserts         []dbgen.UpsertRuleParams
	Deletes         []dbgen.DeleteRuleParams
}

// Empty reports whether the revision carries no changes.
func (r RuleRevision) Empty() bool {
	return len(r.Upserts) == 0 && len(r.Deletes) == 0
}

// Store is the persistence surface shared by the postgres and in-memory backends.
type Store interface {
	dbgen.Querier
	// CommitRuleRevision applies rev and returns the new profile version.
	CommitRuleRevision(ctx context.Context, rev RuleRevision) (int64, error)
	// SaveProfileMeta updates the profile metadata. Turning a profile global
	// fails with ErrProfileAssigned while any client has it assigned.
	SaveProfileMeta(ctx context.Context, arg dbgen.UpdateProfileMetaParams) (dbgen.PriceProfile, error)
	// ReplaceAssignments swaps the client's assigned profile set. It fails
	// with ErrNotAssignable when an id is missing or global.
	ReplaceAssignments(ctx context.Context, clientID string, profileIDs []string) error
	// ReplaceSpecialPrices swaps the client's special price set.
	ReplaceSpecialPrices(ctx context.Context, clientID string, rows []dbgen.UpsertSpecialPriceParams) error
	Ping(ctx context.Context) error
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a postgres foreign key failure.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
