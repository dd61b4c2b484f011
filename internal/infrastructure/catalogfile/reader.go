// Package catalogfile serves the product catalog from a local YAML seed file.
// It backs offline development and tests when no content store is configured.
package catalogfile

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/furniro/storefront/internal/domain/catalog"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// seedFile is the document layout of the YAML seed
type seedFile struct {
	Products []catalog.Product `yaml:"products"`
}

// ProductReader implements catalog.ProductReader over an in-memory product list
type ProductReader struct {
	products []catalog.Product
	byID     map[string]int
}

// Open loads the seed file at path
func Open(path string, logger *zap.Logger) (*ProductReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog seed: %w", err)
	}
	defer f.Close()
	return Load(f, logger)
}

// Load parses a YAML seed. Invalid or duplicate products are skipped with a warning.
func Load(r io.Reader, logger *zap.Logger) (*ProductReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}

	reader := &ProductReader{byID: make(map[string]int, len(seed.Products))}
	for _, p := range seed.Products {
		if err := p.Validate(); err != nil {
			logger.Warn("skipping invalid product in seed", zap.String("product_id", p.ID), zap.Error(err))
			continue
		}
		if _, dup := reader.byID[p.ID]; dup {
			logger.Warn("skipping duplicate product in seed", zap.String("product_id", p.ID))
			continue
		}
		p.NormalizeTags()
		reader.byID[p.ID] = len(reader.products)
		reader.products = append(reader.products, p)
	}

	logger.Info("catalog seed loaded", zap.Int("products", len(reader.products)))
	return reader, nil
}

// FindAll returns every product in seed order
func (r *ProductReader) FindAll(ctx context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, len(r.products))
	copy(out, r.products)
	return out, nil
}

// FindByID returns the product or catalog.ErrProductNotFound
func (r *ProductReader) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	p := r.products[i]
	return &p, nil
}

// FindRelated returns the first limit products other than excludeID
func (r *ProductReader) FindRelated(ctx context.Context, excludeID string, limit int) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, limit)
	for _, p := range r.products {
		if len(out) >= limit {
			break
		}
		if p.ID != excludeID {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ catalog.ProductReader = (*ProductReader)(nil)
