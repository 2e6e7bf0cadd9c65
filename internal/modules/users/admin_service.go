package users

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminService manages staff accounts. Every method expects the caller to be
// a super admin; the HTTP layer enforces that.
type AdminService struct {
	db  *gorm.DB
	svc *Service
}

func NewAdminService(db *gorm.DB, svc *Service) *AdminService {
	return &AdminService{db: db, svc: svc}
}

func (s *AdminService) ListAdmins(ctx context.Context, page int) (ListResult, error) {
	return s.svc.repo.List(ctx, ListParams{Roles: []string{RoleAdmin, RoleSuperAdmin}, Page: page, PageSize: 100})
}

func (s *AdminService) ListCustomers(ctx context.Context, q string, page, size int) (ListResult, error) {
	return s.svc.repo.List(ctx, ListParams{Q: q, Roles: []string{RoleCustomer}, Page: page, PageSize: size})
}

type CreateAdminInput struct {
	Email    string
	Password string
	FullName string
	Role     string
}

func (s *AdminService) CreateAdmin(ctx context.Context, in CreateAdminInput) (User, error) {
	if !IsAdminRole(in.Role) {
		return User{}, ErrInvalidRole
	}
	return s.svc.createWithRole(ctx, RegisterInput{Email: in.Email, Password: in.Password, FullName: in.FullName}, in.Role)
}

// SetRole changes a user's role. A super admin may not change their own role
// and the last super admin can never be demoted.
func (s *AdminService) SetRole(ctx context.Context, actorID, targetID, role string) (User, error) {
	if !ValidRole(role) {
		return User{}, ErrInvalidRole
	}
	if actorID == targetID {
		return User{}, ErrSelfDemotion
	}

	var out User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if target.Role == RoleSuperAdmin && role != RoleSuperAdmin {
			var supers []User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").Where("role = ?", RoleSuperAdmin).Find(&supers).Error; err != nil {
				return err
			}
			if len(supers) <= 1 {
				return ErrLastSuperAdmin
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&User{}).Where("id = ?", target.ID).
			Updates(map[string]any{"role": role, "updated_at": now}).Error; err != nil {
			return err
		}
		target.Role = role
		target.UpdatedAt = now
		out = target
		return nil
	})
	return out, err
}

// RemoveAdmin demotes a staff account back to customer.
func (s *AdminService) RemoveAdmin(ctx context.Context, actorID, targetID string) (User, error) {
	return s.SetRole(ctx, actorID, targetID, RoleCustomer)
}

// Promote sets the role for the account with the given email; used by the CLI.
func (s *AdminService) Promote(ctx context.Context, addr, role string) (User, error) {
	if !ValidRole(role) {
		return User{}, ErrInvalidRole
	}
	u, err := s.svc.repo.FindByEmail(ctx, addr)
	if err != nil {
		return User{}, err
	}
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", u.ID).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()}).Error; err != nil {
		return User{}, err
	}
	u.Role = role
	return u, nil
}
