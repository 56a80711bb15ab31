package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/flicky/storefront-api/internal/apperr"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var (
	ErrInvalidQuantity   = apperr.Validation("quantity must be greater than zero")
	ErrInsufficientStock = apperr.Conflict("insufficient stock")
	ErrNothingToCheckout = apperr.NotFound("no unpaid items to check out")
	ErrCartItemNotFound  = apperr.NotFound("cart item not found or does not belong to the user")
	ErrCartItemPaid      = apperr.Conflict("paid items cannot be removed")
)

// CheckoutPublisher announces committed checkouts to downstream consumers.
type CheckoutPublisher interface {
	PublishCheckout(ctx context.Context, msg model.CheckoutMessage) error
}

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	publisher   CheckoutPublisher
	log         *zap.Logger
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	publisher CheckoutPublisher,
	log *zap.Logger,
) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, publisher: publisher, log: log}
}

func (s *CartService) GetOrCreateCart(ctx context.Context, userID int64) (*model.Cart, error) {
	return s.cartRepo.GetOrCreateCart(ctx, userID)
}

// AddItem puts quantity units of a product into the user's unpaid cart,
// creating the cart on first use. Stock is checked against the merged unpaid
// quantity but not reserved; it is taken at checkout.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*model.CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if quantity > product.Stock {
		return nil, ErrInsufficientStock
	}

	cart, err := s.cartRepo.GetOrCreateCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get or create cart: %w", err)
	}

	inCart, err := s.unpaidQuantity(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if inCart+quantity > product.Stock {
		return nil, ErrInsufficientStock
	}

	item := &model.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
	if err := s.cartRepo.AddItem(ctx, item); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, ErrProductNotFound
		case errors.Is(err, repository.ErrOutOfRange):
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("add item: %w", err)
	}
	return item, nil
}

func (s *CartService) unpaidQuantity(ctx context.Context, userID, productID int64) (int, error) {
	lines, err := s.cartRepo.ListLines(ctx, userID, model.CartItemUnpaid)
	if err != nil {
		return 0, fmt.Errorf("list unpaid lines: %w", err)
	}
	for _, line := range lines {
		if line.ProductID == productID {
			return line.Quantity, nil
		}
	}
	return 0, nil
}

// ViewUnpaid returns the user's working cart. A user without a cart gets an
// empty list.
func (s *CartService) ViewUnpaid(ctx context.Context, userID int64) ([]model.CartLine, error) {
	return s.cartRepo.ListLines(ctx, userID, model.CartItemUnpaid)
}

func (s *CartService) ViewPaid(ctx context.Context, userID int64) ([]model.CartLine, error) {
	return s.cartRepo.ListLines(ctx, userID, model.CartItemPaid)
}

// Checkout pays every unpaid item of the user's cart at once. Calling it again
// without new adds returns ErrNothingToCheckout and changes nothing.
func (s *CartService) Checkout(ctx context.Context, userID int64) (*model.CheckoutResult, error) {
	result, err := s.cartRepo.Checkout(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("checkout: %w", err)
	}
	if result == nil || len(result.Items) == 0 {
		return nil, ErrNothingToCheckout
	}

	s.publish(ctx, userID, result)
	return result, nil
}

// publish is best effort: the checkout is already committed.
func (s *CartService) publish(ctx context.Context, userID int64, result *model.CheckoutResult) {
	if s.publisher == nil {
		return
	}
	productIDs := make([]int64, 0, len(result.Items))
	for _, item := range result.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	msg := model.CheckoutMessage{
		ID:          uuid.NewString(),
		UserID:      userID,
		CartID:      result.CartID,
		ProductIDs:  productIDs,
		PurchasedAt: result.PurchasedAt,
	}
	if err := s.publisher.PublishCheckout(ctx, msg); err != nil {
		s.log.Warn("publish checkout event",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("cart_id", result.CartID))
	}
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	err := s.cartRepo.RemoveItem(ctx, userID, itemID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrCartItemNotFound
	case errors.Is(err, repository.ErrItemPaid):
		return ErrCartItemPaid
	default:
		return fmt.Errorf("remove item: %w", err)
	}
}
