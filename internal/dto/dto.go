package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
)

// Envelope wraps every JSON response body.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// --- Auth ---

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Email    string `json:"email" binding:"required,email"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"newPassword" binding:"omitempty,min=6,max=72"`
	Address  *string `json:"address" binding:"omitempty,max=255"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
}

func (r UpdateProfileRequest) Empty() bool {
	return r.Email == nil && r.Password == nil && r.Address == nil && r.Phone == nil
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserResponse is the public view of a user; the password hash never
// leaves the service layer.
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Address:   u.Address,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// --- Catalog ---

type CreateProductRequest struct {
	ProductName string           `json:"productName" binding:"required,max=255"`
	Price       *decimal.Decimal `json:"price" binding:"required,gte=0,lte=9999999999.99"`
	Stock       *int             `json:"stock" binding:"required,gte=0,max=2147483647"`
	Image       *string          `json:"img"`
	Specs       *string          `json:"specs"`
	Discount    *decimal.Decimal `json:"discount" binding:"omitempty,gte=0,lte=9999999999.99"`
	CategoryID  *int64           `json:"categoryId" binding:"omitempty,gt=0"`
}

// UpdateProductRequest carries only the fields the client sent.
type UpdateProductRequest struct {
	ProductName *string          `json:"productName" binding:"omitempty,min=1,max=255"`
	Price       *decimal.Decimal `json:"price" binding:"omitempty,gte=0,lte=9999999999.99"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0,max=2147483647"`
	Image       *string          `json:"img"`
	Specs       *string          `json:"specs"`
	Discount    *decimal.Decimal `json:"discount" binding:"omitempty,gte=0,lte=9999999999.99"`
	CategoryID  *int64           `json:"categoryId" binding:"omitempty,gt=0"`
}

func (r UpdateProductRequest) Empty() bool {
	return r.ProductName == nil && r.Price == nil && r.Stock == nil && r.Image == nil &&
		r.Specs == nil && r.Discount == nil && r.CategoryID == nil
}

// ProductFilter holds the parsed query of GET /products/filter.
type ProductFilter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Name     string
}

type ProductFilterQuery struct {
	Category string `form:"category"`
	MinPrice string `form:"minPrice"`
	MaxPrice string `form:"maxPrice"`
	Name     string `form:"name"`
}

type ProductResponse struct {
	ID           int64            `json:"productId"`
	Name         string           `json:"productName"`
	Price        decimal.Decimal  `json:"price"`
	Stock        int              `json:"stock"`
	Discount     *decimal.Decimal `json:"discount,omitempty"`
	Image        *string          `json:"img,omitempty"`
	Specs        *string          `json:"specs,omitempty"`
	CategoryID   *int64           `json:"categoryId,omitempty"`
	CategoryName *string          `json:"categoryName,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

type CreateCategoryRequest struct {
	Name string `json:"categoryName" binding:"required,max=100"`
}

type CategoryResponse struct {
	ID   int64  `json:"categoryId"`
	Name string `json:"categoryName"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,max=2147483647"`
}

type CartItemResponse struct {
	ID        int64  `json:"cartItemId"`
	CartID    int64  `json:"cartId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
}

type CartLineResponse struct {
	ID           int64            `json:"cartItemId"`
	ProductID    int64            `json:"productId"`
	ProductName  string           `json:"productName"`
	Price        decimal.Decimal  `json:"price"`
	Discount     *decimal.Decimal `json:"discount,omitempty"`
	Image        *string          `json:"img,omitempty"`
	CategoryName *string          `json:"categoryName,omitempty"`
	Quantity     int              `json:"quantity"`
	Status       string           `json:"status"`
	PurchasedAt  *time.Time       `json:"purchaseDate,omitempty"`
}

type CheckoutResponse struct {
	CartID      int64     `json:"cartId"`
	ItemsPaid   int       `json:"itemsPaid"`
	PurchasedAt time.Time `json:"purchaseDate"`
}

// --- Admin ---

type UserFilter struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Address  string `form:"address"`
	Phone    string `form:"phone"`
}

type UserCartResponse struct {
	User   UserResponse       `json:"user"`
	CartID *int64             `json:"cartId"`
	Items  []CartLineResponse `json:"items"`
}

type PaidTotalResponse struct {
	ProductID     int64            `json:"productId"`
	ProductName   string           `json:"productName"`
	Price         decimal.Decimal  `json:"price"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	CategoryName  *string          `json:"categoryName,omitempty"`
	TotalQuantity int64            `json:"totalQuantity"`
}
