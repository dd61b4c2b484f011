package catalog

import (
	"github.com/furniro/storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ListFilter narrows the product listing
type ListFilter struct {
	Tag     string `form:"tag"`
	NewOnly bool   `form:"new"`
}

// ProductView is a product prepared for display
type ProductView struct {
	ID                 string          `json:"_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Slug               string          `json:"slug,omitempty"`
	Price              decimal.Decimal `json:"price"`
	PriceLabel         string          `json:"price_label"`
	DiscountPercentage float64         `json:"discount_percentage"`
	DiscountedPrice    decimal.Decimal `json:"discounted_price"`
	DiscountLabel      string          `json:"discount_label,omitempty"`
	ImageURL           string          `json:"image_url"`
	Tags               []string        `json:"tags"`
	TagLabels          []string        `json:"tag_labels"`
	IsNew              bool            `json:"is_new"`
	InWishlist         bool            `json:"in_wishlist"`
	InCart             bool            `json:"in_cart"`
}

// ProductDetail is the product page: the product and up to four related ones
type ProductDetail struct {
	Product ProductView   `json:"product"`
	Related []ProductView `json:"related"`
}

func (s *Service) toView(p catalog.Product) ProductView {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	labels := make([]string, len(tags))
	for i, tag := range tags {
		labels[i] = s.caser.String(tag)
	}

	var slug string
	if p.Slug != nil {
		slug = p.Slug.Current
	}

	view := ProductView{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Slug:               slug,
		Price:              p.PriceDecimal(),
		PriceLabel:         s.FormatPrice(p.PriceDecimal()),
		DiscountPercentage: p.DiscountPercentage,
		DiscountedPrice:    p.DiscountedPrice(),
		ImageURL:           s.images.URL(p.ImageRef()),
		Tags:               tags,
		TagLabels:          labels,
		IsNew:              p.IsNew,
	}
	if p.DiscountPercentage > 0 {
		view.DiscountLabel = "-" + decimal.NewFromFloat(p.DiscountPercentage).String() + "%"
	}
	return view
}
