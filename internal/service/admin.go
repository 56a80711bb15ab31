package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flicky/storefront-api/internal/apperr"
	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var ErrCannotDeleteSelf = apperr.Validation("admins cannot delete their own account")

type AdminService struct {
	adminRepo repository.AdminRepository
	userRepo  repository.UserRepository
}

func NewAdminService(adminRepo repository.AdminRepository, userRepo repository.UserRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo, userRepo: userRepo}
}

// PaidTotals sums paid quantities per product across all users.
func (s *AdminService) PaidTotals(ctx context.Context) ([]model.PaidTotal, error) {
	totals, err := s.adminRepo.PaidTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("paid totals: %w", err)
	}
	return totals, nil
}

func (s *AdminService) UsersWithCarts(ctx context.Context, f dto.UserFilter) ([]model.UserCart, error) {
	users, err := s.adminRepo.UsersWithCarts(ctx, repository.UserFilter{
		Username: f.Username,
		Email:    f.Email,
		Address:  f.Address,
		Phone:    f.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("users with carts: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user together with their cart and its items.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return ErrCannotDeleteSelf
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
