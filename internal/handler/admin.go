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

type AdminService interface {
	PaidTotals(ctx context.Context) ([]model.PaidTotal, error)
	UsersWithCarts(ctx context.Context, f dto.UserFilter) ([]model.UserCart, error)
	DeleteUser(ctx context.Context, actorID, userID int64) error
}

type AdminHandler struct {
	svc AdminService
	log *zap.Logger
}

func NewAdminHandler(svc AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

func (h *AdminHandler) UserCarts(c *gin.Context) {
	var f dto.UserFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		bindError(c, err)
		return
	}
	users, err := h.svc.UsersWithCarts(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]dto.UserCartResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.UserCartResponse{
			User:   dto.NewUserResponse(&users[i].User),
			CartID: users[i].CartID,
			Items:  toCartLines(users[i].Lines),
		})
	}
	respond(c, http.StatusOK, out)
}

func (h *AdminHandler) PaidTotals(c *gin.Context) {
	totals, err := h.svc.PaidTotals(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]dto.PaidTotalResponse, 0, len(totals))
	for _, t := range totals {
		resp := dto.PaidTotalResponse{
			ProductID:     t.ProductID,
			ProductName:   t.ProductName,
			Price:         t.Price,
			CategoryName:  t.CategoryName,
			TotalQuantity: t.TotalQuantity,
		}
		if t.Discount.Valid {
			d := t.Discount.Decimal
			resp.Discount = &d
		}
		out = append(out, resp)
	}
	respond(c, http.StatusOK, out)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respondMessage(c, http.StatusOK, "user deleted")
}
