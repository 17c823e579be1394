package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
	"scwatch/internal/validation"
)

const RoleAdmin = "admin"

type AdminService struct {
	repo      domain.AdminRepository
	directory domain.IdentityDirectory
	now       func() time.Time
}

func NewAdminService(r domain.AdminRepository, dir domain.IdentityDirectory) *AdminService {
	return &AdminService{repo: r, directory: dir, now: time.Now}
}

// IsAdmin reports whether userID holds an admin grant.
func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	_, err := s.repo.GetAdminByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *AdminService) List(ctx context.Context) ([]domain.AdminUser, error) {
	return s.repo.ListAdmins(ctx)
}

// Add grants admin to an account registered with the identity provider.
func (s *AdminService) Add(ctx context.Context, actor domain.Principal, rawEmail string) (domain.AdminUser, error) {
	email, err := validation.Email(rawEmail)
	if err != nil {
		return domain.AdminUser{}, err
	}
	if s.directory == nil {
		return domain.AdminUser{}, errors.New("identity directory not configured")
	}
	id, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return domain.AdminUser{}, err
	}
	if _, err := s.repo.GetAdminByUserID(ctx, id.ID); err == nil {
		return domain.AdminUser{}, domain.Conflict("User is already an admin")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.AdminUser{}, err
	}

	a := domain.AdminUser{
		ID:        newID(),
		UserID:    id.ID,
		Email:     &id.Email,
		Role:      RoleAdmin,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertAdmin(ctx, a); err != nil {
		return domain.AdminUser{}, err
	}
	log.Info().Str("admin_user_id", a.UserID).Str("granted_by", actor.UserID).Msg("admin granted")
	return a, nil
}

// Remove revokes an admin grant. Admins cannot remove themselves and the
// last admin cannot be removed.
func (s *AdminService) Remove(ctx context.Context, actor domain.Principal, adminID string) error {
	if adminID == "" {
		verr := &domain.ValidationError{}
		verr.Add("adminId", "Admin ID is required")
		return verr
	}
	a, err := s.repo.GetAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if a.UserID == actor.UserID {
		return domain.Conflict("You cannot remove yourself as admin")
	}
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return domain.Conflict("Cannot remove the last admin")
	}
	if err := s.repo.DeleteAdmin(ctx, adminID); err != nil {
		return err
	}
	log.Info().Str("admin_user_id", a.UserID).Str("removed_by", actor.UserID).Msg("admin revoked")
	return nil
}
