package boost

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/middleware"
	"github.com/rajivgeraev/bonplan-api/internal/models"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
	"github.com/rajivgeraev/bonplan-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestApp(f *fixture) *fiber.App {
	app := fiber.New()
	f.service.SetupRoutes(app, middleware.AuthMiddleware(utils.NewJWTService(testSecret)))
	return app
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := utils.NewJWTService(testSecret).GenerateToken(userID)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, body, auth string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCatalogHandler(t *testing.T) {
	app := newTestApp(newFixture(t))

	status, body := doJSON(t, app, http.MethodGet, "/api/boost/catalog", "", "")
	require.Equal(t, fiber.StatusOK, status)

	boosts, ok := body["boosts"].([]interface{})
	require.True(t, ok)
	require.Len(t, boosts, 3)

	first := boosts[0].(map[string]interface{})
	assert.Equal(t, "vedette", first["type"])
	assert.Equal(t, "6.00", first["price"])
	assert.Equal(t, float64(7), first["duration_days"])
}

func TestInitiateHandlerRequiresToken(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)

	body := `{"listing_id":"` + f.listing.ID.String() + `","boost_type":"urgent","provider":"stripe"}`
	status, _ := doJSON(t, app, http.MethodPost, "/api/boost/initiate", body, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	f.stripe.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
}

func TestInitiateHandler(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	f.stripe.On("CreateCheckout", mock.Anything, mock.Anything).
		Return(&payment.Checkout{RedirectURL: "https://checkout.stripe.test/cs_7", ProviderRef: "cs_7"}, nil).Once()

	body := `{"listing_id":"` + f.listing.ID.String() + `","boost_type":"urgent","provider":"stripe"}`
	status, out := doJSON(t, app, http.MethodPost, "/api/boost/initiate", body, bearer(t, f.owner))

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "https://checkout.stripe.test/cs_7", out["redirect_url"])
	assert.Equal(t, "cs_7", out["provider_ref"])
	f.stripe.AssertExpectations(t)
}

func TestInitiateHandlerErrors(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	listingID := f.listing.ID.String()

	tests := []struct {
		name   string
		body   string
		user   uuid.UUID
		status int
	}{
		{"invalid boost type", `{"listing_id":"` + listingID + `","boost_type":"gold","provider":"stripe"}`, f.owner, fiber.StatusBadRequest},
		{"unknown provider", `{"listing_id":"` + listingID + `","boost_type":"urgent","provider":"bitcoin"}`, f.owner, fiber.StatusBadRequest},
		{"malformed listing id", `{"listing_id":"42","boost_type":"urgent","provider":"stripe"}`, f.owner, fiber.StatusBadRequest},
		{"missing fields", `{}`, f.owner, fiber.StatusBadRequest},
		{"not owner", `{"listing_id":"` + listingID + `","boost_type":"urgent","provider":"stripe"}`, uuid.New(), fiber.StatusForbidden},
		{"listing not found", `{"listing_id":"` + uuid.NewString() + `","boost_type":"urgent","provider":"stripe"}`, f.owner, fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := doJSON(t, app, http.MethodPost, "/api/boost/initiate", tt.body, bearer(t, tt.user))
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, out["error"])
		})
	}
	f.stripe.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
}

func TestConfirmHandlerPending(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	f.paypal.On("Confirm", mock.Anything, "ORDER-1").
		Return(&payment.Confirmation{Completed: false, Status: "APPROVED"}, nil).Once()

	status, out := doJSON(t, app, http.MethodPost, "/api/boost/confirm", `{"provider":"paypal","provider_ref":"ORDER-1"}`, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, out["success"])
	assert.NotEmpty(t, out["message"])
	assert.Zero(t, f.store.setBoostCalls)
}

func TestConfirmHandlerDoubleSubmit(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	f.paypal.On("Confirm", mock.Anything, "ORDER-1").Return(nil, payment.ErrCaptureInProgress).Once()

	status, out := doJSON(t, app, http.MethodPost, "/api/boost/confirm", `{"provider":"paypal","provider_ref":"ORDER-1"}`, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, out["success"])
	assert.NotEmpty(t, out["message"])
	assert.Nil(t, out["error"])
}

func TestConfirmHandlerSuccess(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	f.stripe.On("Confirm", mock.Anything, "cs_1").
		Return(f.completed(f.listing.ID, models.BoostVedette), nil).Once()

	status, out := doJSON(t, app, http.MethodPost, "/api/boost/confirm", `{"provider":"stripe","provider_ref":"cs_1"}`, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "vedette", out["boost_type"])
	assert.Equal(t, "2025-05-08T12:00:00Z", out["expires_at"])
}

func TestConfirmHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"checkout not found", payment.ErrCheckoutNotFound, fiber.StatusNotFound},
		{"already captured", payment.ErrAlreadyCaptured, fiber.StatusConflict},
		{"outcome unknown", payment.ErrCaptureOutcomeUnknown, fiber.StatusBadGateway},
		{"provider unavailable", payment.ErrProviderUnavailable, fiber.StatusBadGateway},
		{"ledger unavailable", payment.ErrLedgerUnavailable, fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			app := newTestApp(f)
			f.paypal.On("Confirm", mock.Anything, "ORDER-1").Return(nil, tt.err).Once()

			status, out := doJSON(t, app, http.MethodPost, "/api/boost/confirm", `{"provider":"paypal","provider_ref":"ORDER-1"}`, "")
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestConfirmHandlerMissingReference(t *testing.T) {
	app := newTestApp(newFixture(t))

	status, out := doJSON(t, app, http.MethodPost, "/api/boost/confirm", `{"provider":"stripe"}`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, ErrMissingProviderRef.Error(), out["error"])
}

func TestConfirmHandlerVanishedListing(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)
	f.store.delete(f.listing.ID)
	f.stripe.On("Confirm", mock.Anything, "cs_1").
		Return(f.completed(f.listing.ID, models.BoostUrgent), nil).Once()

	status, _ := doJSON(t, app, http.MethodPost, "/api/boost/confirm", `{"provider":"stripe","provider_ref":"cs_1"}`, "")
	assert.Equal(t, fiber.StatusGone, status)
	assert.Len(t, f.recs.records, 1)
}
