package sanity

import (
	"fmt"
	"strings"

	"github.com/furniro/storefront/internal/domain/catalog"
)

// PlaceholderImage is served when a product has no usable image reference
const PlaceholderImage = "/placeholder.png"

const defaultImageBaseURL = "https://cdn.sanity.io"

// ImageURLBuilder resolves asset references such as
// image-<id>-<width>x<height>-<ext> into CDN URLs.
type ImageURLBuilder struct {
	baseURL   string
	projectID string
	dataset   string
}

// NewImageURLBuilder creates a builder for the given project and dataset
func NewImageURLBuilder(baseURL, projectID, dataset string) *ImageURLBuilder {
	if baseURL == "" {
		baseURL = defaultImageBaseURL
	}
	return &ImageURLBuilder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		dataset:   dataset,
	}
}

// URL returns the CDN URL for ref or PlaceholderImage
func (b *ImageURLBuilder) URL(ref string) string {
	id, dims, ext, ok := parseImageRef(ref)
	if !ok || b.projectID == "" {
		return PlaceholderImage
	}
	return fmt.Sprintf("%s/images/%s/%s/%s-%s.%s", b.baseURL, b.projectID, b.dataset, id, dims, ext)
}

// parseImageRef splits image-<id>-<WxH>-<ext>
func parseImageRef(ref string) (id, dims, ext string, ok bool) {
	rest, found := strings.CutPrefix(ref, "image-")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(rest, "-")
	if len(parts) < 3 {
		return "", "", "", false
	}
	ext = parts[len(parts)-1]
	dims = parts[len(parts)-2]
	id = strings.Join(parts[:len(parts)-2], "-")

	w, h, found := strings.Cut(dims, "x")
	if !found || !isDigits(w) || !isDigits(h) || id == "" || ext == "" {
		return "", "", "", false
	}
	return id, dims, ext, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var _ catalog.ImageResolver = (*ImageURLBuilder)(nil)
