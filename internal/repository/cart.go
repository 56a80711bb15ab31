package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront-api/internal/model"
)

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*model.Cart, error)
	GetCartByUserID(ctx context.Context, userID int64) (*model.Cart, error)
	AddItem(ctx context.Context, item *model.CartItem) error
	ListLines(ctx context.Context, userID int64, status model.CartItemStatus) ([]model.CartLine, error)
	Checkout(ctx context.Context, userID int64) (*model.CheckoutResult, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

// GetOrCreateCart relies on UNIQUE(user_id): concurrent first calls for the
// same user all return the single row that won the insert.
func (r *pgCartRepo) GetOrCreateCart(ctx context.Context, userID int64) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO carts (user_id, created_at) VALUES ($1, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING cart_id, user_id, created_at`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", translate(err))
	}
	return cart, nil
}

func (r *pgCartRepo) GetCartByUserID(ctx context.Context, userID int64) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT cart_id, user_id, created_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem upserts against the partial unique index on unpaid rows, so repeated
// adds of one product collapse into a single unpaid line. Paid rows are outside
// the index and are never touched.
func (r *pgCartRepo) AddItem(ctx context.Context, item *model.CartItem) error {
	query := `INSERT INTO cart_items (cart_id, product_id, quantity, status)
			  VALUES ($1, $2, $3, 0)
			  ON CONFLICT (cart_id, product_id) WHERE status = 0
			  DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			  RETURNING cart_item_id, quantity`
	err := r.pool.QueryRow(ctx, query, item.CartID, item.ProductID, item.Quantity).
		Scan(&item.ID, &item.Quantity)
	if err != nil {
		return fmt.Errorf("add cart item: %w", translate(err))
	}
	item.Status = model.CartItemUnpaid
	return nil
}

func (r *pgCartRepo) ListLines(ctx context.Context, userID int64, status model.CartItemStatus) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ci.cart_item_id, ci.cart_id, ci.product_id, ci.quantity, ci.status, ci.purchase_date,
		        p.product_name, p.price, p.discount, p.img, cat.category_name
		 FROM cart_items ci
		 JOIN carts c ON c.cart_id = ci.cart_id
		 JOIN products p ON p.product_id = ci.product_id
		 LEFT JOIN categories cat ON cat.category_id = p.category_id
		 WHERE c.user_id = $1 AND ci.status = $2
		 ORDER BY ci.cart_item_id`, userID, int16(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var (
			l  model.CartLine
			st int16
		)
		if err := rows.Scan(&l.ID, &l.CartID, &l.ProductID, &l.Quantity, &st, &l.PurchasedAt,
			&l.ProductName, &l.Price, &l.Discount, &l.Image, &l.CategoryName); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		l.Status = model.CartItemStatus(st)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return lines, nil
}

// Checkout flips every unpaid item of the user's cart to paid in one
// transaction and takes the purchased quantities out of stock. Only the rows
// locked here are flipped; items inserted by a concurrent add after the lock
// stay unpaid. A nil result means the user has no cart; an empty Items slice
// means there was nothing to pay.
func (r *pgCartRepo) Checkout(ctx context.Context, userID int64) (*model.CheckoutResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cart := &model.Cart{}
	err = tx.QueryRow(ctx,
		`SELECT cart_id, user_id, created_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	items, err := lockUnpaidItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}
	result := &model.CheckoutResult{CartID: cart.ID}
	if len(items) == 0 {
		return result, nil
	}

	if err := decrementStock(ctx, tx, items); err != nil {
		return nil, err
	}

	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	purchasedAt := time.Now().UTC().Truncate(time.Microsecond)
	ct, err := tx.Exec(ctx,
		`UPDATE cart_items SET status = 1, purchase_date = $2
		 WHERE cart_item_id = ANY($1) AND status = 0`, ids, purchasedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("mark items paid: %w", err)
	}
	if ct.RowsAffected() != int64(len(ids)) {
		return nil, fmt.Errorf("mark items paid: %d of %d rows updated", ct.RowsAffected(), len(ids))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	for i := range items {
		items[i].Status = model.CartItemPaid
		items[i].PurchasedAt = &purchasedAt
	}
	result.Items = items
	result.PurchasedAt = purchasedAt
	return result, nil
}

func lockUnpaidItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]model.CartItem, error) {
	rows, err := tx.Query(ctx,
		`SELECT cart_item_id, cart_id, product_id, quantity
		 FROM cart_items
		 WHERE cart_id = $1 AND status = 0
		 ORDER BY cart_item_id
		 FOR UPDATE`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("lock unpaid items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		item := model.CartItem{Status: model.CartItemUnpaid}
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock unpaid items: %w", err)
	}
	return items, nil
}

// decrementStock walks products in id order so concurrent checkouts sharing
// products lock them in the same sequence.
func decrementStock(ctx context.Context, tx pgx.Tx, items []model.CartItem) error {
	need := make(map[int64]int, len(items))
	for _, item := range items {
		need[item.ProductID] += item.Quantity
	}
	productIDs := make([]int64, 0, len(need))
	for id := range need {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	for _, id := range productIDs {
		ct, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2 WHERE product_id = $1 AND stock >= $2`,
			id, need[id],
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("%w for product %d", ErrInsufficientStock, id)
		}
	}
	return nil
}

// RemoveItem deletes an unpaid item owned by userID. It returns pgx.ErrNoRows
// when the item does not exist or belongs to another user, and ErrItemPaid for
// paid items.
func (r *pgCartRepo) RemoveItem(ctx context.Context, userID, itemID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var status int16
	err = tx.QueryRow(ctx,
		`SELECT ci.status
		 FROM cart_items ci
		 JOIN carts c ON c.cart_id = ci.cart_id
		 WHERE ci.cart_item_id = $1 AND c.user_id = $2
		 FOR UPDATE OF ci`, itemID, userID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("lock cart item: %w", err)
	}
	if model.CartItemStatus(status) == model.CartItemPaid {
		return ErrItemPaid
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_item_id = $1`, itemID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return tx.Commit(ctx)
}
