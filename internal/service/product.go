package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flicky/storefront-api/internal/apperr"
	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var (
	ErrProductNotFound = apperr.NotFound("product not found")
	ErrUnknownCategory = apperr.Validation("unknown category")
	ErrProductInUse    = apperr.Conflict("product is referenced by cart items")
	ErrInvalidPrice    = apperr.Validation("minPrice must not exceed maxPrice")
	ErrValueOutOfRange = apperr.Validation("numeric value out of range")
)

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
	log         *zap.Logger
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client, log *zap.Logger) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient, log: log}
}

func productCacheKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	product := &model.Product{
		Name:       req.ProductName,
		Price:      *req.Price,
		Stock:      *req.Stock,
		Image:      req.Image,
		Specs:      req.Specs,
		CategoryID: req.CategoryID,
	}
	if req.Discount != nil {
		product.Discount.Decimal = *req.Discount
		product.Discount.Valid = true
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, ErrUnknownCategory
		case errors.Is(err, repository.ErrOutOfRange):
			return nil, ErrValueOutOfRange
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.load(ctx, product.ID)
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(id)

	// Try cache
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	resp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	// Write to cache
	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return resp, nil
}

func (s *ProductService) load(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) List(ctx context.Context) ([]dto.ProductResponse, error) {
	return s.list(ctx, repository.ProductFilter{})
}

func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]dto.ProductResponse, error) {
	return s.list(ctx, repository.ProductFilter{CategoryName: category})
}

// Filter applies every non-empty criterion; price bounds are exclusive.
func (s *ProductService) Filter(ctx context.Context, f dto.ProductFilter) ([]dto.ProductResponse, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, ErrInvalidPrice
	}
	return s.list(ctx, repository.ProductFilter{
		CategoryName: f.Category,
		MinPrice:     f.MinPrice,
		MaxPrice:     f.MaxPrice,
		Name:         f.Name,
	})
}

func (s *ProductService) list(ctx context.Context, f repository.ProductFilter) ([]dto.ProductResponse, error) {
	products, err := s.productRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	return items, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if req.Empty() {
		return nil, ErrNothingToUpdate
	}

	err := s.productRepo.Update(ctx, id, repository.ProductUpdate{
		Name:       req.ProductName,
		Price:      req.Price,
		Stock:      req.Stock,
		Image:      req.Image,
		Specs:      req.Specs,
		Discount:   req.Discount,
		CategoryID: req.CategoryID,
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrProductNotFound
	case errors.Is(err, repository.ErrInvalidReference):
		return nil, ErrUnknownCategory
	case errors.Is(err, repository.ErrOutOfRange):
		return nil, ErrValueOutOfRange
	case err != nil:
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.dropCached(ctx, id)
	return s.load(ctx, id)
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	err := s.productRepo.Delete(ctx, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrProductNotFound
	case errors.Is(err, repository.ErrInvalidReference):
		return ErrProductInUse
	case err != nil:
		return fmt.Errorf("delete product: %w", err)
	}
	s.dropCached(ctx, id)
	return nil
}

// dropCached invalidates after a committed write. A failure leaves the old
// detail cached until its TTL runs out.
func (s *ProductService) dropCached(ctx context.Context, id int64) {
	if err := s.InvalidateCache(ctx, id); err != nil {
		s.log.Warn("invalidate product cache",
			zap.Error(err), zap.Int64("product_id", id), zap.Duration("stale_for", productCacheTTL))
	}
}

// InvalidateCache drops the cached detail of every given product.
func (s *ProductService) InvalidateCache(ctx context.Context, ids ...int64) error {
	if s.redisClient == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productCacheKey(id))
	}
	return s.redisClient.Del(ctx, keys...).Err()
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Stock:        p.Stock,
		Image:        p.Image,
		Specs:        p.Specs,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		CreatedAt:    p.CreatedAt,
	}
	if p.Discount.Valid {
		d := p.Discount.Decimal
		resp.Discount = &d
	}
	return resp
}
