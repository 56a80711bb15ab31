package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        int64
	Username  string
	Email     string
	Password  string
	Role      string
	Address   *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID   int64
	Name string
}

type Product struct {
	ID           int64
	Name         string
	Price        decimal.Decimal
	Stock        int
	Discount     decimal.NullDecimal
	Image        *string
	Specs        *string
	CategoryID   *int64
	CategoryName *string
	CreatedAt    time.Time
}

type Cart struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
}

// CartItemStatus is stored as a smallint; paid rows are never modified.
type CartItemStatus int16

const (
	CartItemUnpaid CartItemStatus = 0
	CartItemPaid   CartItemStatus = 1
)

func (s CartItemStatus) String() string {
	if s == CartItemPaid {
		return "paid"
	}
	return "unpaid"
}

type CartItem struct {
	ID          int64
	CartID      int64
	ProductID   int64
	Quantity    int
	Status      CartItemStatus
	PurchasedAt *time.Time
}

// CartLine is a cart item joined with the product fields shown to the owner.
type CartLine struct {
	CartItem
	ProductName  string
	Price        decimal.Decimal
	Discount     decimal.NullDecimal
	Image        *string
	CategoryName *string
}

// PaidTotal aggregates every paid item of one product.
type PaidTotal struct {
	ProductID     int64
	ProductName   string
	Price         decimal.Decimal
	Discount      decimal.NullDecimal
	CategoryName  *string
	TotalQuantity int64
}

// UserCart is a user with their cart tree, as listed for admins.
type UserCart struct {
	User   User
	CartID *int64
	Lines  []CartLine
}

// CheckoutResult describes the rows flipped by one checkout.
type CheckoutResult struct {
	CartID      int64
	Items       []CartItem
	PurchasedAt time.Time
}

type CheckoutMessage struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	CartID      int64     `json:"cart_id"`
	ProductIDs  []int64   `json:"product_ids"`
	PurchasedAt time.Time `json:"purchased_at"`
}
