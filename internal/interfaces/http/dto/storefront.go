package dto

import (
	"time"

	"github.com/furniro/storefront/internal/domain/catalog"
	"github.com/furniro/storefront/internal/domain/checkout"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest adds a product to a collection, either by catalog ID or
// as a full product record.
type AddItemRequest struct {
	ProductID string           `json:"product_id" binding:"required_without=Product"`
	Product   *catalog.Product `json:"product,omitempty"`
}

// CollectionResponse is the persisted state of a collection after a read or mutation
type CollectionResponse struct {
	Collection string             `json:"collection"`
	Items      []collection.Entry `json:"items"`
	Count      int                `json:"count"`
	Total      decimal.Decimal    `json:"total"`
	TotalLabel string             `json:"total_label"`
	Added      *bool              `json:"added,omitempty"`
	Removed    *bool              `json:"removed,omitempty"`
}

// TotalResponse is the running total of a collection
type TotalResponse struct {
	Collection string          `json:"collection"`
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	TotalLabel string          `json:"total_label"`
}

// CountsResponse feeds the header badges
type CountsResponse struct {
	Cart     int `json:"cart"`
	Wishlist int `json:"wishlist"`
}

// CheckoutSummaryResponse is the frozen cart shown on the checkout page
type CheckoutSummaryResponse struct {
	SnapshotID uuid.UUID          `json:"snapshot_id"`
	Items      []collection.Entry `json:"items"`
	Count      int                `json:"count"`
	Total      decimal.Decimal    `json:"total"`
	TotalLabel string             `json:"total_label"`
	CreatedAt  time.Time          `json:"created_at"`
}

// CheckoutConfirmationResponse is the simulated order placement result
type CheckoutConfirmationResponse struct {
	*checkout.Confirmation
	TotalLabel string `json:"total_label"`
}

// SignInRequest holds sign-in credentials
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// HealthResponse reports liveness and dependency status
type HealthResponse struct {
	Status      string            `json:"status"`
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Timestamp   time.Time         `json:"timestamp"`
	Subscribers int               `json:"subscribers"`
	Checks      map[string]string `json:"checks,omitempty"`
}
