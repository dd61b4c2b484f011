// Package catalog serves the shop listing and product detail views on top of
// the read-only product catalog.
package catalog

import (
	"context"
	"strings"

	"github.com/furniro/storefront/internal/domain/catalog"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CollectionReader loads a device's collection
type CollectionReader interface {
	Load(ctx context.Context, owner string, name collection.Name) ([]collection.Entry, error)
}

// Service builds product views. Wishlist and cart membership are read once
// per call so a page reflects a single load of each collection.
type Service struct {
	products    catalog.ProductReader
	collections CollectionReader
	images      catalog.ImageResolver
	logger      *zap.Logger
	printer     *message.Printer
	caser       cases.Caser
}

// NewService creates a catalog service
func NewService(products catalog.ProductReader, collections CollectionReader, images catalog.ImageResolver, logger *zap.Logger) *Service {
	return &Service{
		products:    products,
		collections: collections,
		images:      images,
		logger:      logger,
		printer:     message.NewPrinter(language.AmericanEnglish),
		caser:       cases.Title(language.English),
	}
}

// List returns the products matching filter, annotated for owner
func (s *Service) List(ctx context.Context, owner string, filter ListFilter) ([]ProductView, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalog.list")
	defer span.End()

	products, err := s.products.FindAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	membership := s.membership(ctx, owner)

	tag := strings.TrimSpace(filter.Tag)
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		if tag != "" && !p.HasTag(tag) {
			continue
		}
		if filter.NewOnly && !p.IsNew {
			continue
		}
		views = append(views, membership.annotate(s.toView(p)))
	}
	return views, nil
}

// Detail returns a product with up to catalog.RelatedProductsLimit related products
func (s *Service) Detail(ctx context.Context, owner, id string) (*ProductDetail, error) {
	ctx, span := telemetry.StartSpan(ctx, "catalog.detail", telemetry.AttrProductID.String(id))
	defer span.End()

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	related, err := s.products.FindRelated(ctx, id, catalog.RelatedProductsLimit)
	if err != nil {
		// The page still renders without related products.
		s.logger.Warn("Failed to load related products", zap.String("product_id", id), zap.Error(err))
		related = nil
	}

	membership := s.membership(ctx, owner)
	detail := &ProductDetail{
		Product: membership.annotate(s.toView(*product)),
		Related: make([]ProductView, 0, len(related)),
	}
	for _, p := range related {
		detail.Related = append(detail.Related, membership.annotate(s.toView(p)))
	}
	return detail, nil
}

// Resolve returns the catalog product stored into a collection on add
func (s *Service) Resolve(ctx context.Context, id string) (*catalog.Product, error) {
	return s.products.FindByID(ctx, id)
}

// FormatPrice renders an amount as shown in the storefront, e.g. $1,250.00
func (s *Service) FormatPrice(amount decimal.Decimal) string {
	return "$" + s.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(2)))
}

type membership struct {
	wishlist map[string]bool
	cart     map[string]bool
}

func (m membership) annotate(v ProductView) ProductView {
	v.InWishlist = m.wishlist[v.ID]
	v.InCart = m.cart[v.ID]
	return v
}

// membership loads both collections once. Failures only drop the flags.
func (s *Service) membership(ctx context.Context, owner string) membership {
	m := membership{wishlist: map[string]bool{}, cart: map[string]bool{}}
	if owner == "" || s.collections == nil {
		return m
	}
	for name, ids := range map[collection.Name]map[string]bool{
		collection.Wishlist: m.wishlist,
		collection.Cart:     m.cart,
	} {
		entries, err := s.collections.Load(ctx, owner, name)
		if err != nil {
			s.logger.Warn("Failed to load collection for product view",
				zap.String("collection", name.String()),
				zap.Error(err))
			continue
		}
		for _, e := range entries {
			ids[e.ID] = true
		}
	}
	return m
}
