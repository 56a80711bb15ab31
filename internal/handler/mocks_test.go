package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
)

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID int64, req dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type MockCartService struct{ mock.Mock }

func (m *MockCartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*model.CartItem, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartItem), args.Error(1)
}

func (m *MockCartService) ViewUnpaid(ctx context.Context, userID int64) ([]model.CartLine, error) {
	args := m.Called(ctx, userID)
	lines, _ := args.Get(0).([]model.CartLine)
	return lines, args.Error(1)
}

func (m *MockCartService) ViewPaid(ctx context.Context, userID int64) ([]model.CartLine, error) {
	args := m.Called(ctx, userID)
	lines, _ := args.Get(0).([]model.CartLine)
	return lines, args.Error(1)
}

func (m *MockCartService) Checkout(ctx context.Context, userID int64) (*model.CheckoutResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResult), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

type MockProductService struct{ mock.Mock }

func (m *MockProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProductResponse), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProductResponse), args.Error(1)
}

func (m *MockProductService) List(ctx context.Context) ([]dto.ProductResponse, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]dto.ProductResponse)
	return items, args.Error(1)
}

func (m *MockProductService) ListByCategory(ctx context.Context, category string) ([]dto.ProductResponse, error) {
	args := m.Called(ctx, category)
	items, _ := args.Get(0).([]dto.ProductResponse)
	return items, args.Error(1)
}

func (m *MockProductService) Filter(ctx context.Context, f dto.ProductFilter) ([]dto.ProductResponse, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]dto.ProductResponse)
	return items, args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id int64, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProductResponse), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockAdminService struct{ mock.Mock }

func (m *MockAdminService) PaidTotals(ctx context.Context) ([]model.PaidTotal, error) {
	args := m.Called(ctx)
	totals, _ := args.Get(0).([]model.PaidTotal)
	return totals, args.Error(1)
}

func (m *MockAdminService) UsersWithCarts(ctx context.Context, f dto.UserFilter) ([]model.UserCart, error) {
	args := m.Called(ctx, f)
	users, _ := args.Get(0).([]model.UserCart)
	return users, args.Error(1)
}

func (m *MockAdminService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	return m.Called(ctx, actorID, userID).Error(0)
}
