package handler

import (
	"context"

	"github.com/furniro/storefront/internal/domain/checkout"
	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/furniro/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CheckoutService freezes the cart and completes the simulated order
type CheckoutService interface {
	Begin(ctx context.Context, owner string) (*checkout.Snapshot, error)
	Summary(ctx context.Context, owner string) (*checkout.Snapshot, error)
	Complete(ctx context.Context, owner string, billing checkout.BillingDetails) (*checkout.Confirmation, error)
}

// PriceFormatter renders an amount for display
type PriceFormatter interface {
	FormatPrice(amount decimal.Decimal) string
}

// CheckoutHandler serves the checkout page
type CheckoutHandler struct {
	BaseHandler
	checkout CheckoutService
	prices   PriceFormatter
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(svc CheckoutService, prices PriceFormatter) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc, prices: prices}
}

// Routes returns the checkout route group
func (h *CheckoutHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("/checkout").
		POST("", h.Begin).
		GET("", h.Summary).
		POST("/complete", h.Complete)
}

func (h *CheckoutHandler) summary(s *checkout.Snapshot) dto.CheckoutSummaryResponse {
	return dto.CheckoutSummaryResponse{
		SnapshotID: s.ID(),
		Items:      s.Items(),
		Count:      s.Len(),
		Total:      s.Total(),
		TotalLabel: h.prices.FormatPrice(s.Total()),
		CreatedAt:  s.CreatedAt(),
	}
}

// Begin godoc
// @Summary      Begin checkout
// @Description  Freezes the current cart; later cart changes do not affect the summary
// @Tags         checkout
// @Produce      json
// @Success      201 {object} dto.Response{data=dto.CheckoutSummaryResponse}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /checkout [post]
func (h *CheckoutHandler) Begin(c *gin.Context) {
	snapshot, err := h.checkout.Begin(c.Request.Context(), ownerID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, h.summary(snapshot))
}

// Summary godoc
// @Summary      Checkout summary
// @Description  Returns the frozen cart, never the live one
// @Tags         checkout
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.CheckoutSummaryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /checkout [get]
func (h *CheckoutHandler) Summary(c *gin.Context) {
	snapshot, err := h.checkout.Summary(c.Request.Context(), ownerID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.summary(snapshot))
}

// Complete godoc
// @Summary      Place the order
// @Description  Validates billing details, clears the cart and drops the summary
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body checkout.BillingDetails true "Billing details"
// @Success      200 {object} dto.Response{data=dto.CheckoutConfirmationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /checkout/complete [post]
func (h *CheckoutHandler) Complete(c *gin.Context) {
	var billing checkout.BillingDetails
	if !h.BindJSON(c, &billing) {
		return
	}

	confirmation, err := h.checkout.Complete(c.Request.Context(), ownerID(c), billing)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.CheckoutConfirmationResponse{
		Confirmation: confirmation,
		TotalLabel:   h.prices.FormatPrice(confirmation.Total),
	})
}
