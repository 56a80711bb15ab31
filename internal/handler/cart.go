package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/middleware"
	"github.com/flicky/storefront-api/internal/model"
)

type CartService interface {
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*model.CartItem, error)
	ViewUnpaid(ctx context.Context, userID int64) ([]model.CartLine, error)
	ViewPaid(ctx context.Context, userID int64) ([]model.CartLine, error)
	Checkout(ctx context.Context, userID int64) (*model.CheckoutResult, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

type CartHandler struct {
	svc CartService
	log *zap.Logger
}

func NewCartHandler(svc CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{svc: svc, log: log}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	lines, err := h.svc.ViewUnpaid(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, toCartLines(lines))
}

func (h *CartHandler) GetPaid(c *gin.Context) {
	lines, err := h.svc.ViewPaid(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, toCartLines(lines))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.svc.AddItem(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.CartItemResponse{
		ID:        item.ID,
		CartID:    item.CartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Status:    item.Status.String(),
	})
}

// Checkout serves PUT /cart/update-status.
func (h *CartHandler) Checkout(c *gin.Context) {
	result, err := h.svc.Checkout(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.CheckoutResponse{
		CartID:      result.CartID,
		ItemsPaid:   len(result.Items),
		PurchasedAt: result.PurchasedAt,
	})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, err := pathID(c, "cartItemId")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.svc.RemoveItem(c.Request.Context(), middleware.GetUserID(c), itemID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondMessage(c, http.StatusOK, "item removed")
}

func toCartLines(lines []model.CartLine) []dto.CartLineResponse {
	out := make([]dto.CartLineResponse, 0, len(lines))
	for _, l := range lines {
		resp := dto.CartLineResponse{
			ID:           l.ID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Price:        l.Price,
			Image:        l.Image,
			CategoryName: l.CategoryName,
			Quantity:     l.Quantity,
			Status:       l.Status.String(),
			PurchasedAt:  l.PurchasedAt,
		}
		if l.Discount.Valid {
			d := l.Discount.Decimal
			resp.Discount = &d
		}
		out = append(out, resp)
	}
	return out
}
