package sanity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config errors
var (
	ErrConfigMissingProjectID = errors.New("sanity: project id is required")
	ErrConfigMissingDataset   = errors.New("sanity: dataset is required")
)

const (
	defaultAPIVersion = "2025-01-22"
	defaultTimeout    = 10 * time.Second

	// maxResponseSize caps how much of a query response is read
	maxResponseSize = 10 << 20
)

// Config holds the content store connection settings
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	UseCDN     bool
	Token      string
	Timeout    time.Duration

	// BaseURL overrides the derived API host, mainly for tests
	BaseURL string
}

// Validate checks required fields
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return ErrConfigMissingProjectID
	}
	if strings.TrimSpace(c.Dataset) == "" {
		return ErrConfigMissingDataset
	}
	return nil
}

// apiVersion returns the version path segment without a leading "v"
func (c *Config) apiVersion() string {
	v := strings.TrimPrefix(c.APIVersion, "v")
	if v == "" {
		return defaultAPIVersion
	}
	return v
}

// QueryURL returns the GROQ query endpoint for the dataset
func (c *Config) QueryURL() string {
	base := c.BaseURL
	if base == "" {
		host := "api"
		if c.UseCDN && c.Token == "" {
			host = "apicdn"
		}
		base = fmt.Sprintf("https://%s.%s.sanity.io", c.ProjectID, host)
	}
	return fmt.Sprintf("%s/v%s/data/query/%s", strings.TrimRight(base, "/"), c.apiVersion(), c.Dataset)
}
