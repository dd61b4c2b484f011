package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ImageAsset references an uploaded image in the content store
type ImageAsset struct {
	Ref  string `json:"_ref" yaml:"_ref"`
	Type string `json:"_type,omitempty" yaml:"_type,omitempty"`
}

// Image is the productImage field of a product document
type Image struct {
	Asset ImageAsset `json:"asset" yaml:"asset"`
}

// Slug is the URL slug of a product document
type Slug struct {
	Current string `json:"current" yaml:"current"`
}

// Product is a read-only product record as served by the content store.
// The application never mutates it; collections store copies by value.
type Product struct {
	ID                 string   `json:"_id" yaml:"_id"`
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
	Price              float64  `json:"price" yaml:"price"`
	DiscountPercentage float64  `json:"discountPercentage,omitempty" yaml:"discountPercentage,omitempty"`
	ProductImage       *Image   `json:"productImage,omitempty" yaml:"productImage,omitempty"`
	Tags               []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	IsNew              bool     `json:"isNew" yaml:"isNew"`
	Slug               *Slug    `json:"slug,omitempty" yaml:"slug,omitempty"`
}

// Validate checks the product against the content schema rules
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if err := validateTitle(p.Title); err != nil {
		return err
	}
	if p.Price < 0 {
		return shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}
	if p.DiscountPercentage < 0 || p.DiscountPercentage > 100 {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount percentage must be between 0 and 100")
	}
	return nil
}

// NormalizeTags removes duplicate and blank tags, keeping first-seen order
func (p *Product) NormalizeTags() {
	if len(p.Tags) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(p.Tags))
	out := p.Tags[:0]
	for _, tag := range p.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	p.Tags = out
}

// HasTag reports whether the product carries the tag (case-insensitive)
func (p *Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// PriceDecimal returns the raw price as a decimal
func (p *Product) PriceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(p.Price)
}

// DiscountedPrice returns the price after discount, rounded to cents.
// It is used for display only; collection totals use the raw price.
func (p *Product) DiscountedPrice() decimal.Decimal {
	price := p.PriceDecimal()
	if p.DiscountPercentage <= 0 {
		return price
	}
	factor := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(p.DiscountPercentage)).Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(2)
}

// ImageRef returns the asset reference of the product image, or ""
func (p *Product) ImageRef() string {
	if p.ProductImage == nil {
		return ""
	}
	return p.ProductImage.Asset.Ref
}

// validateTitle validates the product title
func validateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < 2 {
		return shared.NewDomainError("INVALID_TITLE", "Product title must be at least 2 characters")
	}
	if n > 100 {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot exceed 100 characters")
	}
	return nil
}
