package catalog

import (
	"context"

	"github.com/furniro/storefront/internal/domain/shared"
)

// RelatedProductsLimit is the number of related products shown on a detail page
const RelatedProductsLimit = 4

// Catalog errors
var (
	ErrProductNotFound    = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrCatalogUnavailable = shared.NewDomainError("CATALOG_UNAVAILABLE", "Product catalog is unavailable")
)

// ProductReader defines read access to the product catalog.
// Implementations talk to the headless content store or a local seed file.
type ProductReader interface {
	// FindAll returns every product document
	FindAll(ctx context.Context) ([]Product, error)

	// FindByID returns the product with the given ID or ErrProductNotFound
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindRelated returns up to limit products whose ID differs from excludeID
	FindRelated(ctx context.Context, excludeID string, limit int) ([]Product, error)
}

// ImageResolver turns an image asset reference into a displayable URL
type ImageResolver interface {
	URL(ref string) string
}
