package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/models"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v76"
)

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) New(params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripego.CheckoutSession), args.Error(1)
}

func (m *MockSessions) Get(id string, params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error) {
	args := m.Called(id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripego.CheckoutSession), args.Error(1)
}

func newTestClient(sessions sessionAPI) *Client {
	c := NewClient(Config{
		SecretKey:  "sk_test",
		SuccessURL: "https://bonplan.test/payment-success?provider=stripe&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://bonplan.test/mes-annonces",
	})
	c.sessions = sessions
	return c
}

func TestCreateCheckout(t *testing.T) {
	sessions := new(MockSessions)
	c := newTestClient(sessions)

	meta := payment.Metadata{ListingID: uuid.New(), BoostType: models.BoostVedette, UserID: uuid.New()}

	var captured *stripego.CheckoutSessionParams
	sessions.On("New", mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(0).(*stripego.CheckoutSessionParams) }).
		Return(&stripego.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/c/cs_test_1"}, nil).
		Once()

	checkout, err := c.CreateCheckout(context.Background(), payment.CheckoutRequest{
		AmountCents:   600,
		Currency:      "EUR",
		ProductName:   "Boost Vedette",
		Description:   "Boost Vedette pour: Canapé",
		CustomerEmail: "seller@bonplan.test",
		Metadata:      meta,
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", checkout.ProviderRef)
	assert.Equal(t, "https://checkout.stripe.test/c/cs_test_1", checkout.RedirectURL)

	require.NotNil(t, captured)
	assert.Equal(t, "payment", *captured.Mode)
	require.Len(t, captured.LineItems, 1)
	item := captured.LineItems[0]
	assert.Equal(t, int64(1), *item.Quantity)
	assert.Equal(t, "eur", *item.PriceData.Currency)
	assert.Equal(t, int64(600), *item.PriceData.UnitAmount)
	assert.Equal(t, "Boost Vedette", *item.PriceData.ProductData.Name)
	assert.Equal(t, "Boost Vedette pour: Canapé", *item.PriceData.ProductData.Description)
	assert.Equal(t, "seller@bonplan.test", *captured.CustomerEmail)
	assert.Equal(t, meta.Map(), captured.Metadata)
	assert.Contains(t, *captured.SuccessURL, "{CHECKOUT_SESSION_ID}")
	assert.NotNil(t, captured.Context)

	sessions.AssertExpectations(t)
}

func TestCreateCheckoutWithoutEmail(t *testing.T) {
	sessions := new(MockSessions)
	c := newTestClient(sessions)

	sessions.On("New", mock.MatchedBy(func(p *stripego.CheckoutSessionParams) bool {
		return p.CustomerEmail == nil
	})).Return(&stripego.CheckoutSession{ID: "cs_2", URL: "https://checkout.stripe.test/c/cs_2"}, nil).Once()

	_, err := c.CreateCheckout(context.Background(), payment.CheckoutRequest{
		AmountCents: 300,
		Metadata:    payment.Metadata{ListingID: uuid.New(), BoostType: models.BoostUrgent},
	})
	require.NoError(t, err)
	sessions.AssertExpectations(t)
}

func TestConfirm(t *testing.T) {
	meta := map[string]string{payment.MetaListingID: uuid.NewString(), payment.MetaBoostType: "urgent"}

	tests := []struct {
		name      string
		status    stripego.CheckoutSessionPaymentStatus
		completed bool
	}{
		{name: "paid", status: stripego.CheckoutSessionPaymentStatusPaid, completed: true},
		{name: "unpaid", status: stripego.CheckoutSessionPaymentStatusUnpaid, completed: false},
		{name: "no payment required", status: stripego.CheckoutSessionPaymentStatusNoPaymentRequired, completed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessions)
			c := newTestClient(sessions)

			sessions.On("Get", "cs_1", mock.Anything).
				Return(&stripego.CheckoutSession{ID: "cs_1", PaymentStatus: tt.status, Metadata: meta}, nil).
				Once()

			conf, err := c.Confirm(context.Background(), "cs_1")
			require.NoError(t, err)
			assert.Equal(t, tt.completed, conf.Completed)
			assert.Equal(t, string(tt.status), conf.Status)
			assert.Equal(t, meta, conf.Metadata)
			sessions.AssertExpectations(t)
		})
	}
}

func TestConfirmIsRepeatable(t *testing.T) {
	sessions := new(MockSessions)
	c := newTestClient(sessions)

	sessions.On("Get", "cs_1", mock.Anything).
		Return(&stripego.CheckoutSession{ID: "cs_1", PaymentStatus: stripego.CheckoutSessionPaymentStatusPaid}, nil).
		Twice()

	for i := 0; i < 2; i++ {
		conf, err := c.Confirm(context.Background(), "cs_1")
		require.NoError(t, err)
		assert.True(t, conf.Completed)
	}
	sessions.AssertExpectations(t)
}

func TestMapError(t *testing.T) {
	notFound := &stripego.Error{HTTPStatusCode: http.StatusNotFound, Code: stripego.ErrorCodeResourceMissing}
	assert.ErrorIs(t, mapError("op", notFound), payment.ErrCheckoutNotFound)

	serverErr := &stripego.Error{HTTPStatusCode: http.StatusInternalServerError}
	assert.ErrorIs(t, mapError("op", serverErr), payment.ErrProviderUnavailable)

	badRequest := &stripego.Error{HTTPStatusCode: http.StatusBadRequest}
	err := mapError("op", badRequest)
	assert.NotErrorIs(t, err, payment.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, payment.ErrCheckoutNotFound)

	assert.ErrorIs(t, mapError("op", errors.New("dial tcp: timeout")), payment.ErrProviderUnavailable)
}
