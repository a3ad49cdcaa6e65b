package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rig-store/rig_ledger/internal/identity"
)

// Service reads and upserts principal profiles.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a profile service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the profile of owner; any caller may look anyone up.
func (s *Service) Get(ctx context.Context, owner identity.Principal) (Profile, bool, error) {
	p, ok, err := s.repo.Get(ctx, owner)
	if err != nil {
		return Profile{}, false, fmt.Errorf("load profile: %w", err)
	}
	return p, ok, nil
}

// SaveOwn upserts the caller's own profile. The name is stored as given,
// empty included.
func (s *Service) SaveOwn(ctx context.Context, caller identity.Principal, p Profile) error {
	if err := identity.RequireAuthenticated(caller); err != nil {
		return err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, caller, p); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	s.logger.Debug("profile saved", slog.String("principal", caller.String()))
	return nil
}
