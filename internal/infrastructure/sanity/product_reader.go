package sanity

import (
	"context"
	"fmt"

	"github.com/furniro/storefront/internal/domain/catalog"
	"go.uber.org/zap"
)

const productProjection = `{_id,title,price,description,discountPercentage,productImage,tags,isNew,slug}`

const (
	queryAllProducts     = `*[_type == "product"]` + productProjection
	queryProductByID     = `*[_type == "product" && _id == $productId][0]` + productProjection
	queryRelatedProducts = `*[_type == "product" && _id != $productId][0...%d]` + productProjection
)

// ProductReader implements catalog.ProductReader over GROQ queries.
// Documents failing schema validation are skipped with a warning.
type ProductReader struct {
	client *Client
	logger *zap.Logger
}

// NewProductReader creates a reader on top of client
func NewProductReader(client *Client, logger *zap.Logger) *ProductReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductReader{client: client, logger: logger}
}

// FindAll returns every valid product document
func (r *ProductReader) FindAll(ctx context.Context) ([]catalog.Product, error) {
	var docs []catalog.Product
	if err := r.client.Query(ctx, queryAllProducts, nil, &docs); err != nil {
		return nil, err
	}
	return r.keepValid(docs), nil
}

// FindByID returns the product or catalog.ErrProductNotFound
func (r *ProductReader) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	var doc *catalog.Product
	if err := r.client.Query(ctx, queryProductByID, map[string]any{"productId": id}, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, catalog.ErrProductNotFound
	}
	valid := r.keepValid([]catalog.Product{*doc})
	if len(valid) == 0 {
		return nil, catalog.ErrProductNotFound
	}
	return &valid[0], nil
}

// FindRelated returns up to limit products other than excludeID
func (r *ProductReader) FindRelated(ctx context.Context, excludeID string, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		return []catalog.Product{}, nil
	}
	var docs []catalog.Product
	groq := fmt.Sprintf(queryRelatedProducts, limit)
	if err := r.client.Query(ctx, groq, map[string]any{"productId": excludeID}, &docs); err != nil {
		return nil, err
	}
	return r.keepValid(docs), nil
}

func (r *ProductReader) keepValid(docs []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, 0, len(docs))
	for _, p := range docs {
		if err := p.Validate(); err != nil {
			r.logger.Warn("skipping invalid product document",
				zap.String("product_id", p.ID),
				zap.Error(err))
			continue
		}
		p.NormalizeTags()
		out = append(out, p)
	}
	return out
}

var _ catalog.ProductReader = (*ProductReader)(nil)
