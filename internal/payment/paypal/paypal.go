// Package paypal реализует оплату бустов через PayPal Orders v2 с явным списанием (capture).
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/log"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
)

const (
	DefaultAPIURL = "https://api-m.paypal.com"

	// Лимиты полей purchase_unit
	maxCustomIDLen    = 127
	maxDescriptionLen = 127

	statusCompleted = "COMPLETED"

	issueAlreadyCaptured = "ORDER_ALREADY_CAPTURED"
	issueNotApproved     = "ORDER_NOT_APPROVED"
	issueNotFound        = "RESOURCE_NOT_FOUND"
)

// Config параметры клиента PayPal
type Config struct {
	ClientID  string
	Secret    string
	APIURL    string
	BrandName string
	ReturnURL string
	CancelURL string

	AuthTimeout     time.Duration
	CheckoutTimeout time.Duration
	CaptureTimeout  time.Duration

	// LockTTL время удержания блокировки списания. Если результат списания неизвестен,
	// блокировка не снимается до истечения TTL.
	LockTTL time.Duration
	// ResultTTL сколько хранить результат успешного списания
	ResultTTL time.Duration
}

// Client клиент PayPal REST API
type Client struct {
	cfg        Config
	ledger     CaptureLedger
	HTTPClient *http.Client
}

var _ payment.Provider = (*Client)(nil)

// NewClient создает клиента PayPal
func NewClient(cfg Config, ledger CaptureLedger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 5 * time.Second
	}
	if cfg.CheckoutTimeout <= 0 {
		cfg.CheckoutTimeout = 8 * time.Second
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = 15 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 72 * time.Hour
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}

	return &Client{
		cfg:    cfg,
		ledger: ledger,
		// Таймауты задаются контекстом на каждый вызов
		HTTPClient: &http.Client{},
	}
}

// Name возвращает имя провайдера
func (c *Client) Name() payment.ProviderName {
	return payment.ProviderPayPal
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitRequest struct {
	Amount      amount `json:"amount"`
	Description string `json:"description,omitempty"`
	CustomID    string `json:"custom_id"`
}

type applicationContext struct {
	BrandName   string `json:"brand_name,omitempty"`
	LandingPage string `json:"landing_page"`
	UserAction  string `json:"user_action"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
}

type orderRequest struct {
	Intent             string                `json:"intent"`
	PurchaseUnits      []purchaseUnitRequest `json:"purchase_units"`
	ApplicationContext applicationContext    `json:"application_context"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Payments struct {
			Captures []struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				CustomID string `json:"custom_id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (e apiError) hasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return e.Name == issue
}

// CreateCheckout создает заказ PayPal и возвращает ссылку на подтверждение оплаты
func (c *Client) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	customID, err := req.Metadata.JSON()
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}
	if len(customID) > maxCustomIDLen {
		return nil, fmt.Errorf("custom_id длиннее %d символов: %d", maxCustomIDLen, len(customID))
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	order := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitRequest{{
			Amount:      amount{CurrencyCode: currency, Value: formatAmount(req.AmountCents)},
			Description: truncate(req.Description, maxDescriptionLen),
			CustomID:    customID,
		}},
		ApplicationContext: applicationContext{
			BrandName:   c.cfg.BrandName,
			LandingPage: "NO_PREFERENCE",
			UserAction:  "PAY_NOW",
			ReturnURL:   c.cfg.ReturnURL,
			CancelURL:   c.cfg.CancelURL,
		},
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CheckoutTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: paypal create order: %v", payment.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: paypal create order: %v", payment.ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: paypal create order failed: status=%d body=%s",
			payment.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var out orderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа PayPal: %w", err)
	}

	approveURL := ""
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approveURL = l.Href
			break
		}
	}
	if approveURL == "" || out.ID == "" {
		return nil, fmt.Errorf("%w: в ответе PayPal нет ссылки на оплату", payment.ErrProviderUnavailable)
	}

	return &payment.Checkout{RedirectURL: approveURL, ProviderRef: out.ID}, nil
}

// Confirm списывает оплату по заказу. Повторный вызов возвращает сохранённый результат
// первого списания и не обращается к PayPal.
func (c *Client) Confirm(ctx context.Context, orderID string) (*payment.Confirmation, error) {
	stored, err := c.ledger.LoadCapture(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrLedgerUnavailable, err)
	}
	if stored != nil {
		log.Infof("Повторное подтверждение заказа PayPal %s, используем сохранённый результат", orderID)
		return stored, nil
	}

	acquired, err := c.ledger.AcquireCaptureLock(ctx, orderID, c.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrLedgerUnavailable, err)
	}
	if !acquired {
		return nil, payment.ErrCaptureInProgress
	}

	conf, captured, err := c.capture(ctx, orderID)
	if err != nil {
		if errors.Is(err, payment.ErrCaptureOutcomeUnknown) {
			// Деньги могли списаться: блокировку не снимаем, повтор не выполняем
			log.Errorf("❌ Результат списания заказа PayPal %s неизвестен: %v", orderID, err)
			return nil, err
		}
		c.releaseLock(ctx, orderID)
		return nil, err
	}

	if captured {
		if err := c.ledger.SaveCapture(ctx, orderID, *conf, c.cfg.ResultTTL); err != nil {
			log.Errorf("Не удалось сохранить результат списания заказа PayPal %s: %v", orderID, err)
		}
	}
	c.releaseLock(ctx, orderID)

	return conf, nil
}

func (c *Client) releaseLock(ctx context.Context, orderID string) {
	if err := c.ledger.ReleaseCaptureLock(ctx, orderID); err != nil {
		log.Warnf("Не удалось снять блокировку списания заказа PayPal %s: %v", orderID, err)
	}
}

// capture выполняет единственную попытку списания.
// captured=true означает, что PayPal обработал списание и результат окончательный.
func (c *Client) capture(ctx context.Context, orderID string) (*payment.Confirmation, bool, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CaptureTimeout)
	defer cancel()

	endpoint := c.cfg.APIURL + "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	// Одинаковый PayPal-Request-Id не даст провайдеру списать дважды
	req.Header.Set("PayPal-Request-Id", "capture-"+orderID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", payment.ErrCaptureOutcomeUnknown, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", payment.ErrCaptureOutcomeUnknown, err)
	}

	if resp.StatusCode >= 500 {
		return nil, false, fmt.Errorf("%w: status=%d body=%s", payment.ErrCaptureOutcomeUnknown, resp.StatusCode, string(body))
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)

		switch {
		case apiErr.hasIssue(issueNotApproved):
			// Покупатель ещё не подтвердил оплату
			return &payment.Confirmation{Completed: false, Status: issueNotApproved}, false, nil
		case apiErr.hasIssue(issueAlreadyCaptured):
			return nil, false, payment.ErrAlreadyCaptured
		case resp.StatusCode == http.StatusNotFound || apiErr.hasIssue(issueNotFound):
			return nil, false, payment.ErrCheckoutNotFound
		}
		return nil, false, fmt.Errorf("paypal capture failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out captureResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, false, fmt.Errorf("%w: ошибка разбора ответа PayPal: %v", payment.ErrCaptureOutcomeUnknown, err)
	}

	return &payment.Confirmation{
		Completed: out.Status == statusCompleted,
		Status:    out.Status,
		Metadata:  payment.DecodeMetadataJSON(out.customID()),
	}, true, nil
}

// customID берёт custom_id из первого списания, иначе из purchase_unit
func (r captureResponse) customID() string {
	if len(r.PurchaseUnits) == 0 {
		return ""
	}
	pu := r.PurchaseUnits[0]
	if len(pu.Payments.Captures) > 0 && pu.Payments.Captures[0].CustomID != "" {
		return pu.Payments.Captures[0].CustomID
	}
	return pu.CustomID
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.Secret == "" {
		return "", errors.New("PAYPAL_CLIENT_ID/PAYPAL_SECRET не заданы")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AuthTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal auth: %v", payment.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("%w: paypal auth: %v", payment.ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: paypal auth failed: status=%d body=%s",
			payment.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("ошибка разбора токена PayPal: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: PayPal не вернул access_token", payment.ErrProviderUnavailable)
	}
	return out.AccessToken, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
