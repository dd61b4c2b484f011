package handler

import (
	"context"

	catalogapp "github.com/furniro/storefront/internal/application/catalog"
	"github.com/furniro/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// ProductCatalog renders the shop listing and product pages
type ProductCatalog interface {
	List(ctx context.Context, owner string, filter catalogapp.ListFilter) ([]catalogapp.ProductView, error)
	Detail(ctx context.Context, owner, id string) (*catalogapp.ProductDetail, error)
}

// ShopHandler serves the catalog views
type ShopHandler struct {
	BaseHandler
	catalog ProductCatalog
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(catalog ProductCatalog) *ShopHandler {
	return &ShopHandler{catalog: catalog}
}

// Routes returns the shop route group
func (h *ShopHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("/shop").
		GET("/products", h.ListProducts).
		GET("/products/:id", h.GetProduct)
}

// ListProducts godoc
// @Summary      List products
// @Description  Catalog listing, each product flagged with its wishlist and cart membership
// @Tags         shop
// @Produce      json
// @Param        tag  query  string  false  "Tag filter"
// @Param        new  query  bool    false  "Only new arrivals"
// @Success      200 {object} dto.Response{data=[]catalog.ProductView}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /shop/products [get]
func (h *ShopHandler) ListProducts(c *gin.Context) {
	var filter catalogapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	products, err := h.catalog.List(c.Request.Context(), ownerID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// GetProduct godoc
// @Summary      Product detail
// @Description  One product plus up to four related products
// @Tags         shop
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      200 {object} dto.Response{data=catalog.ProductDetail}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /shop/products/{id} [get]
func (h *ShopHandler) GetProduct(c *gin.Context) {
	detail, err := h.catalog.Detail(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}
