package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validBilling = map[string]any{
	"name":    "Ada Shopper",
	"email":   "ada@furniro.test",
	"address": "12 Harbour Road",
	"city":    "Lagos",
}

func TestCheckoutHandler_Flow(t *testing.T) {
	app := newTestApp(t)
	for _, id := range []string{"sofa-1", "chair-1"} {
		app.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": id}, withDevice(deviceA))
	}

	w, resp := app.do(t, http.MethodPost, "/api/v1/checkout", nil, withDevice(deviceA))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	begun := decodeData[dto.CheckoutSummaryResponse](t, resp)
	assert.Equal(t, 2, begun.Count)
	assert.Equal(t, "$252,500.00", begun.TotalLabel)

	// later cart changes do not reach the frozen summary
	app.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "lamp-1"}, withDevice(deviceA))

	w, resp = app.do(t, http.MethodGet, "/api/v1/checkout", nil, withDevice(deviceA))
	require.Equal(t, http.StatusOK, w.Code)
	summary := decodeData[dto.CheckoutSummaryResponse](t, resp)
	assert.Equal(t, begun.SnapshotID, summary.SnapshotID)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, begun.Total.Equal(summary.Total))

	w, resp = app.do(t, http.MethodPost, "/api/v1/checkout/complete", validBilling, withDevice(deviceA))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmation := decodeData[dto.CheckoutConfirmationResponse](t, resp)
	assert.Equal(t, begun.SnapshotID, confirmation.SnapshotID)
	assert.Equal(t, "Ada Shopper", confirmation.CustomerName)
	assert.Equal(t, 2, confirmation.ItemCount)
	assert.Equal(t, "$252,500.00", confirmation.TotalLabel)

	cart, err := app.store.Load(context.Background(), deviceA, collection.Cart)
	require.NoError(t, err)
	assert.Empty(t, cart)

	w, resp = app.do(t, http.MethodGet, "/api/v1/checkout", nil, withDevice(deviceA))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CHECKOUT_NOT_STARTED", resp.Error.Code)
}

func TestCheckoutHandler_CompleteValidation(t *testing.T) {
	app := newTestApp(t)
	app.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "lamp-1"}, withDevice(deviceA))
	app.do(t, http.MethodPost, "/api/v1/checkout", nil, withDevice(deviceA))

	w, resp := app.do(t, http.MethodPost, "/api/v1/checkout/complete",
		map[string]any{"name": "  ", "email": "ada@furniro.test"}, withDevice(deviceA))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	fields := make([]string, 0, len(resp.Error.Details))
	for _, d := range resp.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"name", "address"}, fields)

	// nothing was cleared
	n, err := app.store.Count(context.Background(), deviceA, collection.Cart)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	w, _ = app.do(t, http.MethodGet, "/api/v1/checkout", nil, withDevice(deviceA))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutHandler_Errors(t *testing.T) {
	t.Run("complete without begin", func(t *testing.T) {
		app := newTestApp(t)
		w, resp := app.do(t, http.MethodPost, "/api/v1/checkout/complete", validBilling, withDevice(deviceA))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "CHECKOUT_NOT_STARTED", resp.Error.Code)
	})

	t.Run("empty cart", func(t *testing.T) {
		app := newTestApp(t)
		w, resp := app.do(t, http.MethodPost, "/api/v1/checkout", nil, withDevice(deviceA))
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Zero(t, decodeData[dto.CheckoutSummaryResponse](t, resp).Count)

		w, resp = app.do(t, http.MethodPost, "/api/v1/checkout/complete", validBilling, withDevice(deviceA))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "EMPTY_CART", resp.Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		app := newTestApp(t)
		w, resp := app.do(t, http.MethodPost, "/api/v1/checkout/complete", `{"name":`, withDevice(deviceA))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	})
}
