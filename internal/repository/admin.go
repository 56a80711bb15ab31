package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
)

// UserFilter matches users whose fields contain every non-empty value,
// case-insensitively.
type UserFilter struct {
	Username string
	Email    string
	Address  string
	Phone    string
}

type AdminRepository interface {
	PaidTotals(ctx context.Context) ([]model.PaidTotal, error)
	UsersWithCarts(ctx context.Context, filter UserFilter) ([]model.UserCart, error)
}

type pgAdminRepo struct{ pool *pgxpool.Pool }

func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &pgAdminRepo{pool: pool}
}

func (r *pgAdminRepo) PaidTotals(ctx context.Context) ([]model.PaidTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.product_id, p.product_name, p.price, p.discount, c.category_name, SUM(ci.quantity)
		 FROM cart_items ci
		 JOIN products p ON p.product_id = ci.product_id
		 LEFT JOIN categories c ON c.category_id = p.category_id
		 WHERE ci.status = 1
		 GROUP BY p.product_id, c.category_name
		 ORDER BY p.product_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate paid items: %w", err)
	}
	defer rows.Close()

	totals := []model.PaidTotal{}
	for rows.Next() {
		var t model.PaidTotal
		if err := rows.Scan(&t.ProductID, &t.ProductName, &t.Price, &t.Discount,
			&t.CategoryName, &t.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan paid total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate paid items: %w", err)
	}
	return totals, nil
}

func buildUsersWithCarts(f UserFilter) (string, []any, error) {
	b := psql.Select(
		"u.user_id", "u.username", "u.email", "u.role", "u.address", "u.phone",
		"u.created_at", "u.updated_at", "c.cart_id",
		"ci.cart_item_id", "ci.product_id", "ci.quantity", "ci.status", "ci.purchase_date",
		"p.product_name", "p.price", "p.discount", "p.img",
	).
		From("users u").
		LeftJoin("carts c ON c.user_id = u.user_id").
		LeftJoin("cart_items ci ON ci.cart_id = c.cart_id").
		LeftJoin("products p ON p.product_id = ci.product_id")

	for _, cond := range []struct{ column, value string }{
		{"u.username", f.Username},
		{"u.email", f.Email},
		{"u.address", f.Address},
		{"u.phone", f.Phone},
	} {
		if cond.value != "" {
			b = b.Where(sq.ILike{cond.column: contains(cond.value)})
		}
	}
	return b.OrderBy("u.user_id", "ci.cart_item_id").ToSql()
}

// UsersWithCarts returns one entry per matching user, in id order, with the
// lines of their cart (paid and unpaid).
func (r *pgAdminRepo) UsersWithCarts(ctx context.Context, filter UserFilter) ([]model.UserCart, error) {
	query, args, err := buildUsersWithCarts(filter)
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users with carts: %w", err)
	}
	defer rows.Close()

	result := []model.UserCart{}
	for rows.Next() {
		var (
			u           model.User
			cartID      *int64
			itemID      *int64
			productID   *int64
			quantity    *int
			status      *int16
			purchasedAt *time.Time
			name        *string
			price       decimal.NullDecimal
			discount    decimal.NullDecimal
			image       *string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Address, &u.Phone,
			&u.CreatedAt, &u.UpdatedAt, &cartID,
			&itemID, &productID, &quantity, &status, &purchasedAt,
			&name, &price, &discount, &image); err != nil {
			return nil, fmt.Errorf("scan user cart: %w", err)
		}

		if n := len(result); n == 0 || result[n-1].User.ID != u.ID {
			result = append(result, model.UserCart{User: u, CartID: cartID, Lines: []model.CartLine{}})
		}
		if itemID == nil {
			continue
		}
		entry := &result[len(result)-1]
		line := model.CartLine{
			CartItem: model.CartItem{
				ID:          *itemID,
				CartID:      *cartID,
				ProductID:   *productID,
				Quantity:    *quantity,
				Status:      model.CartItemStatus(*status),
				PurchasedAt: purchasedAt,
			},
			Price:    price.Decimal,
			Discount: discount,
			Image:    image,
		}
		if name != nil {
			line.ProductName = *name
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users with carts: %w", err)
	}
	return result, nil
}
