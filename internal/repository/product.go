package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
)

// ProductFilter narrows List; zero values match everything.
type ProductFilter struct {
	CategoryName string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Name         string
}

// ProductUpdate lists the product columns to change; nil fields are left alone.
type ProductUpdate struct {
	Name       *string
	Price      *decimal.Decimal
	Stock      *int
	Image      *string
	Specs      *string
	Discount   *decimal.Decimal
	CategoryID *int64
}

func (u ProductUpdate) empty() bool {
	return u.Name == nil && u.Price == nil && u.Stock == nil && u.Image == nil &&
		u.Specs == nil && u.Discount == nil && u.CategoryID == nil
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	Update(ctx context.Context, id int64, upd ProductUpdate) error
	Delete(ctx context.Context, id int64) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func productSelect() sq.SelectBuilder {
	return psql.Select(
		"p.product_id", "p.product_name", "p.price", "p.stock", "p.discount",
		"p.img", "p.specs", "p.category_id", "c.category_name", "p.created_at",
	).From("products p").LeftJoin("categories c ON c.category_id = p.category_id")
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Discount,
		&p.Image, &p.Specs, &p.CategoryID, &p.CategoryName, &p.CreatedAt)
	return p, err
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	query := `INSERT INTO products (product_name, price, stock, discount, img, specs, category_id, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING product_id, created_at`
	err := r.pool.QueryRow(ctx, query,
		product.Name, product.Price, product.Stock, product.Discount,
		product.Image, product.Specs, product.CategoryID,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", translate(err))
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query, args, err := productSelect().Where(sq.Eq{"p.product_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query, args, err := buildProductList(filter)
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func buildProductList(f ProductFilter) (string, []any, error) {
	b := productSelect()
	if f.CategoryName != "" {
		b = b.Where(sq.Eq{"c.category_name": f.CategoryName})
	}
	if f.MinPrice != nil {
		b = b.Where(sq.Gt{"p.price": *f.MinPrice})
	}
	if f.MaxPrice != nil {
		b = b.Where(sq.Lt{"p.price": *f.MaxPrice})
	}
	if f.Name != "" {
		b = b.Where(sq.ILike{"p.product_name": contains(f.Name)})
	}
	return b.OrderBy("p.product_id").ToSql()
}

func (r *pgProductRepo) Update(ctx context.Context, id int64, upd ProductUpdate) error {
	query, args, err := buildProductUpdate(id, upd)
	if err != nil {
		return fmt.Errorf("build product update: %w", err)
	}
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", translate(err))
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func buildProductUpdate(id int64, upd ProductUpdate) (string, []any, error) {
	if upd.empty() {
		return "", nil, errors.New("no product fields to update")
	}
	b := psql.Update("products")
	if upd.Name != nil {
		b = b.Set("product_name", *upd.Name)
	}
	if upd.Price != nil {
		b = b.Set("price", *upd.Price)
	}
	if upd.Stock != nil {
		b = b.Set("stock", *upd.Stock)
	}
	if upd.Image != nil {
		b = b.Set("img", *upd.Image)
	}
	if upd.Specs != nil {
		b = b.Set("specs", *upd.Specs)
	}
	if upd.Discount != nil {
		b = b.Set("discount", *upd.Discount)
	}
	if upd.CategoryID != nil {
		b = b.Set("category_id", *upd.CategoryID)
	}
	return b.Where(sq.Eq{"product_id": id}).ToSql()
}

// Delete fails with ErrInvalidReference while cart items still point at the
// product.
func (r *pgProductRepo) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", translate(err))
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
