package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/furniro/storefront/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Device identification
const (
	DeviceIDHeader    = "X-Device-ID"
	DeviceIDKey       = "device_id"
	DefaultDeviceName = "furniro_device"
)

// DeviceConfig configures the device cookie
type DeviceConfig struct {
	CookieName string
	Domain     string
	Path       string
	Secure     bool
	SameSite   http.SameSite
	Lifetime   time.Duration
}

// DefaultDeviceConfig returns a one year, lax, host-only cookie
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		CookieName: DefaultDeviceName,
		Path:       "/",
		SameSite:   http.SameSiteLaxMode,
		Lifetime:   365 * 24 * time.Hour,
	}
}

// ParseSameSite maps the configured name onto http.SameSite
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Device identifies the browser owning the cart and wishlist. The ID comes
// from the X-Device-ID header or the device cookie; a fresh one is issued
// when neither holds a valid UUID. It plays the role browser local storage
// plays for a client-only shop.
func Device(cfg DeviceConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultDeviceName
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}

	return func(c *gin.Context) {
		deviceID, fromCookie := resolveDeviceID(c, cfg.CookieName)
		if deviceID == "" {
			deviceID = uuid.NewString()
		}
		if !fromCookie {
			c.SetSameSite(cfg.SameSite)
			c.SetCookie(cfg.CookieName, deviceID, int(cfg.Lifetime.Seconds()), cfg.Path, cfg.Domain, cfg.Secure, true)
		}

		ctx, reqLogger := logger.WithDeviceID(c.Request.Context(), logger.GetGinLogger(c), deviceID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(logger.GinLoggerKey, reqLogger)
		c.Set(DeviceIDKey, deviceID)
		c.Header(DeviceIDHeader, deviceID)
		c.Next()
	}
}

// resolveDeviceID prefers the header over the cookie
func resolveDeviceID(c *gin.Context, cookieName string) (id string, fromCookie bool) {
	if h := c.GetHeader(DeviceIDHeader); validDeviceID(h) {
		cookie, err := c.Cookie(cookieName)
		return h, err == nil && cookie == h
	}
	if cookie, err := c.Cookie(cookieName); err == nil && validDeviceID(cookie) {
		return cookie, true
	}
	return "", false
}

func validDeviceID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// GetDeviceID returns the device ID set by Device
func GetDeviceID(c *gin.Context) string {
	return c.GetString(DeviceIDKey)
}
