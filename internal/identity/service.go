package identity

import (
	"context"
	"fmt"
	"log/slog"
)

// Service resolves caller roles and gates operations on them.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new role resolver.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RoleOf returns the assigned role, or the default: guest for the anonymous
// principal and user for everybody else.
func (s *Service) RoleOf(ctx context.Context, p Principal) (Role, error) {
	if p.IsAnonymous() {
		return RoleGuest, nil
	}
	role, ok, err := s.repo.Role(ctx, p)
	if err != nil {
		return "", fmt.Errorf("lookup role: %w", err)
	}
	if !ok {
		return RoleUser, nil
	}
	return role, nil
}

// IsAdmin reports whether p currently holds the admin role.
func (s *Service) IsAdmin(ctx context.Context, p Principal) (bool, error) {
	role, err := s.RoleOf(ctx, p)
	if err != nil {
		return false, err
	}
	return role == RoleAdmin, nil
}

// RequireAdmin fails with ErrAdminRequired unless caller is an admin. The
// anonymous caller gets plain ErrUnauthorized.
func (s *Service) RequireAdmin(ctx context.Context, caller Principal) error {
	if caller.IsAnonymous() {
		return ErrUnauthorized
	}
	admin, err := s.IsAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if !admin {
		return ErrAdminRequired
	}
	return nil
}

// RequireSelfOrAdmin allows callers to act on their own principal, and admins
// on anyone's.
func (s *Service) RequireSelfOrAdmin(ctx context.Context, caller, target Principal) error {
	if caller.IsAnonymous() {
		return ErrUnauthorized
	}
	if caller == target {
		return nil
	}
	admin, err := s.IsAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if !admin {
		return ErrNotOwner
	}
	return nil
}

// RequireAuthenticated rejects the anonymous principal.
func RequireAuthenticated(caller Principal) error {
	if caller.IsAnonymous() {
		return ErrUnauthorized
	}
	return nil
}

// AssignRole overwrites the role of target. Only admins may call it, and an
// admin may demote itself.
func (s *Service) AssignRole(ctx context.Context, caller, target Principal, role Role) error {
	if err := s.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	if target.IsAnonymous() {
		return fmt.Errorf("%w: the anonymous principal is always a guest", ErrInvalidPrincipal)
	}
	if err := s.repo.SetRole(ctx, target, role); err != nil {
		return fmt.Errorf("store role: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("role assigned",
			slog.String("caller", caller.String()),
			slog.String("principal", target.String()),
			slog.String("role", string(role)),
		)
	}
	return nil
}

// Bootstrap grants the admin role to the configured principals without an
// authorization check. It runs once at startup.
func (s *Service) Bootstrap(ctx context.Context, admins []string) error {
	for _, text := range admins {
		p, err := ParsePrincipal(text)
		if err != nil {
			return fmt.Errorf("admin principal %q: %w", text, err)
		}
		if p.IsAnonymous() {
			return fmt.Errorf("admin principal %q: %w", text, ErrInvalidPrincipal)
		}
		if err := s.repo.SetRole(ctx, p, RoleAdmin); err != nil {
			return fmt.Errorf("seed admin %s: %w", p, err)
		}
	}
	return nil
}
