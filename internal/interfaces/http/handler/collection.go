package handler

import (
	"context"

	"github.com/furniro/storefront/internal/domain/catalog"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/furniro/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ErrNotInWishlist is returned when moving a product the wishlist does not hold
var ErrNotInWishlist = shared.NewDomainError("NOT_FOUND", "Product is not in the wishlist")

// CollectionStore is the subset of the collection store used by the views
type CollectionStore interface {
	Load(ctx context.Context, owner string, name collection.Name) ([]collection.Entry, error)
	Add(ctx context.Context, owner string, name collection.Name, entry collection.Entry) ([]collection.Entry, bool, error)
	Remove(ctx context.Context, owner string, name collection.Name, entryID string) ([]collection.Entry, error)
	Toggle(ctx context.Context, owner string, name collection.Name, entry collection.Entry) ([]collection.Entry, bool, error)
}

// ProductResolver looks products up by ID and formats prices
type ProductResolver interface {
	Resolve(ctx context.Context, id string) (*catalog.Product, error)
	FormatPrice(amount decimal.Decimal) string
}

// CollectionHandler serves the cart and wishlist views. Every request loads
// through the store once and every mutation goes through the store.
type CollectionHandler struct {
	BaseHandler
	store    CollectionStore
	products ProductResolver
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(store CollectionStore, products ProductResolver) *CollectionHandler {
	return &CollectionHandler{store: store, products: products}
}

// CartRoutes returns the cart route group
func (h *CollectionHandler) CartRoutes() *router.DomainGroup {
	return router.NewDomainGroup("/cart").
		GET("", h.list(collection.Cart)).
		POST("/items", h.add(collection.Cart)).
		DELETE("/items/:id", h.remove(collection.Cart)).
		GET("/total", h.total(collection.Cart))
}

// WishlistRoutes returns the wishlist route group
func (h *CollectionHandler) WishlistRoutes() *router.DomainGroup {
	return router.NewDomainGroup("/wishlist").
		GET("", h.list(collection.Wishlist)).
		POST("/items", h.add(collection.Wishlist)).
		POST("/toggle", h.ToggleWishlist).
		DELETE("/items/:id", h.remove(collection.Wishlist)).
		POST("/items/:id/move-to-cart", h.MoveToCart).
		GET("/total", h.total(collection.Wishlist))
}

// MeRoutes returns the per-device summary routes
func (h *CollectionHandler) MeRoutes() *router.DomainGroup {
	return router.NewDomainGroup("/me").
		GET("/counts", h.Counts)
}

func (h *CollectionHandler) view(name collection.Name, entries []collection.Entry) dto.CollectionResponse {
	total := collection.Total(entries)
	return dto.CollectionResponse{
		Collection: name.String(),
		Items:      entries,
		Count:      len(entries),
		Total:      total,
		TotalLabel: h.products.FormatPrice(total),
	}
}

// entryFor builds the entry to store: a catalog lookup by ID, or the full
// product record sent by the client.
func (h *CollectionHandler) entryFor(ctx context.Context, req dto.AddItemRequest) (collection.Entry, error) {
	if req.Product != nil {
		product := *req.Product
		if err := product.Validate(); err != nil {
			return collection.Entry{}, err
		}
		return collection.NewEntry(product), nil
	}
	product, err := h.products.Resolve(ctx, req.ProductID)
	if err != nil {
		return collection.Entry{}, err
	}
	return collection.NewEntry(*product), nil
}

// list godoc
// @Summary      Get a collection
// @Tags         collections
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.CollectionResponse}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cart [get]
// @Router       /wishlist [get]
func (h *CollectionHandler) list(name collection.Name) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.store.Load(c.Request.Context(), ownerID(c), name)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, h.view(name, entries))
	}
}

// add godoc
// @Summary      Add a product
// @Description  A duplicate under the unique policy is reported as added=false
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        request body dto.AddItemRequest true "Product to add"
// @Success      200 {object} dto.Response{data=dto.CollectionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      507 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cart/items [post]
// @Router       /wishlist/items [post]
func (h *CollectionHandler) add(name collection.Name) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.AddItemRequest
		if !h.BindJSON(c, &req) {
			return
		}

		ctx := c.Request.Context()
		entry, err := h.entryFor(ctx, req)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		entries, added, err := h.store.Add(ctx, ownerID(c), name, entry)
		if err != nil {
			h.HandleError(c, err)
			return
		}

		resp := h.view(name, entries)
		resp.Added = &added
		h.Success(c, resp)
	}
}

// remove godoc
// @Summary      Remove a product
// @Description  Removes every entry with the product ID
// @Tags         collections
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      200 {object} dto.Response{data=dto.CollectionResponse}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cart/items/{id} [delete]
// @Router       /wishlist/items/{id} [delete]
func (h *CollectionHandler) remove(name collection.Name) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.store.Remove(c.Request.Context(), ownerID(c), name, c.Param("id"))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, h.view(name, entries))
	}
}

// total godoc
// @Summary      Collection total
// @Description  Sum of the raw prices of the persisted entries
// @Tags         collections
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.TotalResponse}
// @Router       /cart/total [get]
func (h *CollectionHandler) total(name collection.Name) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.store.Load(c.Request.Context(), ownerID(c), name)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		total := collection.Total(entries)
		h.Success(c, dto.TotalResponse{
			Collection: name.String(),
			Count:      len(entries),
			Total:      total,
			TotalLabel: h.products.FormatPrice(total),
		})
	}
}

// ToggleWishlist godoc
// @Summary      Toggle a wishlist product
// @Description  Removes the product when present, adds it otherwise
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        request body dto.AddItemRequest true "Product to toggle"
// @Success      200 {object} dto.Response{data=dto.CollectionResponse}
// @Router       /wishlist/toggle [post]
func (h *CollectionHandler) ToggleWishlist(c *gin.Context) {
	var req dto.AddItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	entry, err := h.entryFor(ctx, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entries, wasPresent, err := h.store.Toggle(ctx, ownerID(c), collection.Wishlist, entry)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	added := !wasPresent
	resp := h.view(collection.Wishlist, entries)
	resp.Added = &added
	resp.Removed = &wasPresent
	h.Success(c, resp)
}

// MoveToCart godoc
// @Summary      Add a wishlist product to the cart
// @Description  Copies the wishlist entry into the cart under the cart policy; the wishlist is unchanged
// @Tags         collections
// @Produce      json
// @Param        id  path  string  true  "Product ID"
// @Success      200 {object} dto.Response{data=dto.CollectionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /wishlist/items/{id}/move-to-cart [post]
func (h *CollectionHandler) MoveToCart(c *gin.Context) {
	ctx := c.Request.Context()
	owner := ownerID(c)
	id := c.Param("id")

	wishlist, err := h.store.Load(ctx, owner, collection.Wishlist)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var entry *collection.Entry
	for i := range wishlist {
		if wishlist[i].ID == id {
			entry = &wishlist[i]
			break
		}
	}
	if entry == nil {
		h.HandleError(c, ErrNotInWishlist)
		return
	}

	cart, added, err := h.store.Add(ctx, owner, collection.Cart, *entry)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := h.view(collection.Cart, cart)
	resp.Added = &added
	h.Success(c, resp)
}

// Counts godoc
// @Summary      Cart and wishlist counts
// @Tags         collections
// @Produce      json
// @Success      200 {object} dto.Response{data=dto.CountsResponse}
// @Router       /me/counts [get]
func (h *CollectionHandler) Counts(c *gin.Context) {
	ctx := c.Request.Context()
	owner := ownerID(c)

	cart, err := h.store.Load(ctx, owner, collection.Cart)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	wishlist, err := h.store.Load(ctx, owner, collection.Wishlist)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.CountsResponse{Cart: len(cart), Wishlist: len(wishlist)})
}
