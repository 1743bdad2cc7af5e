package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-engine/internal/common"
	dbgen "github.com/noah-isme/pricing-engine/internal/db/gen"
	"github.com/noah-isme/pricing-engine/internal/events"
	"github.com/noah-isme/pricing-engine/internal/pricing"
	"github.com/noah-isme/pricing-engine/internal/repo"
)

type queryProvider interface {
	GetProfile(ctx context.Context, id string) (dbgen.PriceProfile, error)
	ListGlobalProfiles(ctx context.Context) ([]dbgen.PriceProfile, error)
	ListAssignedProfiles(ctx context.Context, clientID string) ([]dbgen.PriceProfile, error)
	InsertAssignment(ctx context.Context, arg dbgen.InsertAssignmentParams) (int64, error)
	DeleteAssignment(ctx context.Context, arg dbgen.DeleteAssignmentParams) (int64, error)
	ReplaceAssignments(ctx context.Context, clientID string, profileIDs []string) error
	ListAssignmentSummaries(ctx context.Context) ([]dbgen.ListAssignmentSummariesRow, error)
}

// Service maintains which non-global profiles apply to which clients.
// Global profiles are never stored; they are added when resolving.
type Service struct {
	queries queryProvider
	events  *events.Bus
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Events  *events.Bus
	Logger  zerolog.Logger
}

// Summary describes one client's pricing setup.
type Summary struct {
	ClientID         string `json:"clientId"`
	ProfileIDs       string `json:"profileIds"`
	SpecialRuleCount int64  `json:"specialRuleCount"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("assignment: queries provider is required")
	}
	return &Service{queries: cfg.Queries, events: cfg.Events, logger: cfg.Logger}, nil
}

// AssignProfile links a non-global profile to clientID. Repeating an existing
// assignment is a no-op.
func (s *Service) AssignProfile(ctx context.Context, clientID, profileID string) error {
	clientID, profileID = strings.TrimSpace(clientID), strings.TrimSpace(profileID)
	if err := requireIDs(clientID, profileID); err != nil {
		return err
	}
	p, err := s.profile(ctx, profileID)
	if err != nil {
		return err
	}
	if p.IsGlobal {
		return globalAssignment(p.ID)
	}
	n, err := s.queries.InsertAssignment(ctx, dbgen.InsertAssignmentParams{ClientID: clientID, ProfileID: p.ID})
	if err != nil {
		return fmt.Errorf("assign %s to %s: %w", p.ID, clientID, err)
	}
	if n == 0 {
		// Already assigned, or the profile was removed or made global
		// since it was read.
		p, err = s.profile(ctx, profileID)
		if err != nil {
			return err
		}
		if p.IsGlobal {
			return globalAssignment(p.ID)
		}
		return nil
	}
	s.changed(ctx, clientID, []string{p.ID})
	return nil
}

func globalAssignment(id string) error {
	return common.Validation("profile %s is global and already applies to every client", id).
		WithDetails(map[string]any{"field": "profileId", "profileId": id})
}

// UnassignProfile removes the link. Global profiles cannot be unassigned.
func (s *Service) UnassignProfile(ctx context.Context, clientID, profileID string) error {
	clientID, profileID = strings.TrimSpace(clientID), strings.TrimSpace(profileID)
	if err := requireIDs(clientID, profileID); err != nil {
		return err
	}
	p, err := s.profile(ctx, profileID)
	if err != nil {
		return err
	}
	if p.IsGlobal {
		return common.Validation("profile %s is global and cannot be unassigned", p.ID).
			WithDetails(map[string]any{"field": "profileId", "profileId": p.ID})
	}
	n, err := s.queries.DeleteAssignment(ctx, dbgen.DeleteAssignmentParams{ClientID: clientID, ProfileID: p.ID})
	if err != nil {
		return fmt.Errorf("unassign %s from %s: %w", p.ID, clientID, err)
	}
	if n == 0 {
		return common.NotFound("assignment", clientID+"/"+p.ID)
	}
	s.changed(ctx, clientID, []string{p.ID})
	return nil
}

// SetAssignments replaces the client's assigned set. Global ids are skipped
// because they always apply; the persisted ids are returned.
func (s *Service) SetAssignments(ctx context.Context, clientID string, profileIDs []string) ([]string, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, common.Validation("clientId is required").WithDetails(map[string]any{"field": "clientId"})
	}
	seen := make(map[string]struct{}, len(profileIDs))
	keep := make([]string, 0, len(profileIDs))
	for _, id := range profileIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		p, err := s.profile(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.IsGlobal {
			continue
		}
		keep = append(keep, p.ID)
	}
	if err := s.queries.ReplaceAssignments(ctx, clientID, keep); err != nil {
		if errors.Is(err, repo.ErrNotAssignable) {
			return nil, common.Conflict("profiles changed while assigning them to %s", clientID).
				WithDetails(map[string]any{"clientId": clientID, "profileIds": keep})
		}
		return nil, fmt.Errorf("replace assignments of %s: %w", clientID, err)
	}
	s.changed(ctx, clientID, keep)
	return keep, nil
}

// EffectiveProfiles resolves globals, the client's assigned profiles and the
// caller-supplied extra ids into one set ordered by (priority desc, id asc).
// Unknown extra ids are ignored; extras are never persisted.
func (s *Service) EffectiveProfiles(ctx context.Context, clientID string, extra []string) ([]pricing.Profile, error) {
	rows, err := s.queries.ListGlobalProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list global profiles: %w", err)
	}
	if clientID = strings.TrimSpace(clientID); clientID != "" {
		assigned, err := s.queries.ListAssignedProfiles(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("list profiles of %s: %w", clientID, err)
		}
		rows = append(rows, assigned...)
	}
	for _, id := range extra {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		row, err := s.queries.GetProfile(ctx, id)
		if err != nil {
			if repo.IsNotFound(err) {
				s.logger.Debug().Str("profile_id", id).Msg("ignoring unknown extra profile")
				continue
			}
			return nil, fmt.Errorf("get profile %s: %w", id, err)
		}
		rows = append(rows, row)
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]pricing.Profile, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup {
			continue
		}
		seen[row.ID] = struct{}{}
		out = append(out, repo.ProfileFromRow(row))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListSummaries returns one row per client that has assignments or special rules.
func (s *Service) ListSummaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.queries.ListAssignmentSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assignment summaries: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{ClientID: row.ClientID, ProfileIDs: row.ProfileIds, SpecialRuleCount: row.SpecialCount})
	}
	return out, nil
}

func (s *Service) profile(ctx context.Context, id string) (dbgen.PriceProfile, error) {
	row, err := s.queries.GetProfile(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return dbgen.PriceProfile{}, common.NotFound("profile", id)
		}
		return dbgen.PriceProfile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return row, nil
}

func (s *Service) changed(ctx context.Context, clientID string, profileIDs []string) {
	s.events.Publish(ctx, s.logger, events.TopicAssignmentChanged, clientID, events.ClientChanged{ClientID: clientID, ProfileIDs: profileIDs})
}

func requireIDs(clientID, profileID string) error {
	switch {
	case clientID == "":
		return common.Validation("clientId is required").WithDetails(map[string]any{"field": "clientId"})
	case profileID == "":
		return common.Validation("profileId is required").WithDetails(map[string]any{"field": "profileId"})
	}
	return nil
}
