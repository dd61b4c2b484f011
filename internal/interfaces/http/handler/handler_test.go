package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	catalogapp "github.com/furniro/storefront/internal/application/catalog"
	checkoutapp "github.com/furniro/storefront/internal/application/checkout"
	collectionapp "github.com/furniro/storefront/internal/application/collection"
	"github.com/furniro/storefront/internal/application/identity"
	"github.com/furniro/storefront/internal/infrastructure/auth"
	"github.com/furniro/storefront/internal/infrastructure/cache"
	"github.com/furniro/storefront/internal/infrastructure/catalogfile"
	"github.com/furniro/storefront/internal/infrastructure/config"
	"github.com/furniro/storefront/internal/infrastructure/event"
	"github.com/furniro/storefront/internal/infrastructure/persistence"
	"github.com/furniro/storefront/internal/infrastructure/sanity"
	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/furniro/storefront/internal/interfaces/http/middleware"
	"github.com/furniro/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const (
	deviceA = "6f1c1d7e-3b0a-4c55-9a52-2b8f0c4e1a11"
	deviceB = "0b9e4a62-5d7f-4e3c-8a1b-9c2d3e4f5a66"

	testEmail    = "shopper@furniro.test"
	testPassword = "correct horse battery"
)

const testCatalog = `
products:
  - _id: sofa-1
    title: Asgaard sofa
    price: 250000
    isNew: true
    tags: [sofa, living room]
    productImage:
      asset:
        _ref: image-a1b2c3-800x600-jpg
  - _id: chair-1
    title: Syltherine
    price: 2500
    discountPercentage: 30
    tags: [chair]
  - _id: lamp-1
    title: Lolito
    price: 1234.5
    tags: [lamp]
`

// testApp is the storefront wired over in-memory storage and the YAML catalog
type testApp struct {
	engine   *gin.Engine
	store    *collectionapp.Store
	storage  *cache.MemoryStorage
	bus      *event.InMemoryEventBus
	identity *identity.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	storage := cache.NewMemoryStorage(0)
	bus := event.NewInMemoryEventBus(zap.NewNop())
	codec := persistence.NewCollectionCodec()
	store := collectionapp.NewStore(storage, codec, collectionapp.WithPublisher(bus))

	products, err := catalogfile.Load(strings.NewReader(testCatalog), zap.NewNop())
	require.NoError(t, err)
	images := sanity.NewImageURLBuilder("https://cdn.sanity.io", "furniro", "production")
	catalogSvc := catalogapp.NewService(products, store, images, zap.NewNop())
	checkoutSvc := checkoutapp.NewService(store, storage, codec, checkoutapp.WithPublisher(bus))

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	accounts, err := auth.NewAccountStore([]string{testEmail + ":" + string(hash)})
	require.NoError(t, err)
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "furniro-test",
	})
	identitySvc := identity.NewService(accounts, jwtService, auth.NewInMemoryTokenBlacklist(), zap.NewNop())

	shop := NewShopHandler(catalogSvc)
	collections := NewCollectionHandler(store, catalogSvc)
	checkoutHandler := NewCheckoutHandler(checkoutSvc, catalogSvc)
	authHandler := NewAuthHandler(identitySvc)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Device(middleware.DefaultDeviceConfig()))
	router.NewRouter(engine).
		Register(
			shop.Routes(),
			collections.CartRoutes(),
			collections.WishlistRoutes(),
			collections.MeRoutes(),
			checkoutHandler.Routes(),
			authHandler.Routes(),
		).
		Setup()

	return &testApp{
		engine:   engine,
		store:    store,
		storage:  storage,
		bus:      bus,
		identity: identitySvc,
	}
}

// apiResponse mirrors dto.Response with the data left raw
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

type requestOption func(*http.Request)

func withDevice(id string) requestOption {
	return func(r *http.Request) { r.Header.Set(middleware.DeviceIDHeader, id) }
}

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (a *testApp) do(t *testing.T, method, path string, body any, opts ...requestOption) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out), string(resp.Data))
	return out
}
