// Package collection holds the cart and wishlist model: ordered sequences of
// product copies kept per device, with an explicit duplicate policy.
package collection

import (
	"strings"

	"github.com/furniro/storefront/internal/domain/catalog"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Name identifies a named collection
type Name string

const (
	Cart     Name = "cart"
	Wishlist Name = "wishlist"
)

// String returns the collection name
func (n Name) String() string {
	return string(n)
}

// DuplicatePolicy controls whether a collection may hold the same product twice
type DuplicatePolicy string

const (
	// PolicyUnique keeps at most one entry per product ID
	PolicyUnique DuplicatePolicy = "unique"
	// PolicyAllow appends on every add
	PolicyAllow DuplicatePolicy = "allow"
)

// ParseDuplicatePolicy parses a policy name, defaulting to unique for ""
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyUnique:
		return PolicyUnique, nil
	case PolicyAllow:
		return PolicyAllow, nil
	default:
		return "", shared.NewDomainError("INVALID_POLICY", "Unknown duplicate policy: "+s)
	}
}

// Collection errors
var (
	ErrUnknownCollection = shared.NewDomainError("UNKNOWN_COLLECTION", "Unknown collection")
	ErrInvalidEntry      = shared.NewDomainError("INVALID_ENTRY", "Collection entry must have an ID")
)

// Entry is a product stored by value inside a collection.
// Field names match the product document so persisted payloads stay product-shaped.
type Entry struct {
	ID                 string         `json:"_id"`
	Title              string         `json:"title"`
	Price              float64        `json:"price"`
	DiscountPercentage float64        `json:"discountPercentage,omitempty"`
	ProductImage       *catalog.Image `json:"productImage,omitempty"`
	Tags               []string       `json:"tags,omitempty"`
	IsNew              bool           `json:"isNew"`
}

// NewEntry copies the fields a collection keeps from a product
func NewEntry(p catalog.Product) Entry {
	var img *catalog.Image
	if p.ProductImage != nil {
		cp := *p.ProductImage
		img = &cp
	}
	var tags []string
	if len(p.Tags) > 0 {
		tags = append([]string(nil), p.Tags...)
	}
	return Entry{
		ID:                 p.ID,
		Title:              p.Title,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		ProductImage:       img,
		Tags:               tags,
		IsNew:              p.IsNew,
	}
}

// Validate checks the entry can be stored
func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrInvalidEntry
	}
	return nil
}

// Add appends entry unless the policy is unique and the ID is already present.
// The input slice is never modified.
func Add(entries []Entry, entry Entry, policy DuplicatePolicy) ([]Entry, bool) {
	if policy == PolicyUnique && Contains(entries, entry.ID) {
		return clone(entries), false
	}
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entries...)
	return append(out, entry), true
}

// Remove drops every entry with the given ID
func Remove(entries []Entry, id string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// Toggle removes all entries with entry.ID when present, otherwise appends entry.
// It reports whether the ID was present before the call.
func Toggle(entries []Entry, entry Entry) ([]Entry, bool) {
	if Contains(entries, entry.ID) {
		return Remove(entries, entry.ID), true
	}
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entries...)
	return append(out, entry), false
}

// Contains reports whether any entry has the given ID
func Contains(entries []Entry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Total sums the raw prices. Discounts are not applied.
func Total(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(decimal.NewFromFloat(e.Price))
	}
	return total
}

func clone(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
