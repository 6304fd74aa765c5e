package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
)

// phonePattern matches local Kenyan mobile numbers: 07/01 prefix, 10 digits
var phonePattern = regexp.MustCompile(`^(07|01)\d{8}$`)

// Client represents an M-Pesa Daraja API client
type Client struct {
	config     Config
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new Daraja client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// NormalizePhone converts a local 07/01-prefixed number to the 254
// international form Daraja expects.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return "254" + phone[1:], nil
}

// STKPush initiates a Lipa Na M-Pesa online payment: the customer's phone
// shows a PIN prompt and the final result arrives on the callback URL.
func (c *Client) STKPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*STKPushResponse, error) {
	msisdn, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidRequest
	}

	timestamp := time.Now().Format("20060102150405")
	req := STKPushRequest{
		BusinessShortCode: c.config.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            fmt.Sprintf("%d", amount),
		PartyA:            msisdn,
		PartyB:            c.config.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.config.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   description,
	}

	resp, err := c.doRequest(ctx, "/mpesa/stkpush/v1/processrequest", req)
	if err != nil {
		return nil, fmt.Errorf("failed to make stk push request: %w", err)
	}

	var pushResp STKPushResponse
	if err := json.Unmarshal(resp, &pushResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stk push response: %w", err)
	}

	if pushResp.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, pushResp.ResponseDescription)
	}

	return &pushResp, nil
}

// Query checks the state of a previously initiated STK push
func (c *Client) Query(ctx context.Context, checkoutRequestID string) (*QueryResponse, error) {
	if checkoutRequestID == "" {
		return nil, ErrInvalidTransaction
	}

	timestamp := time.Now().Format("20060102150405")
	req := QueryRequest{
		BusinessShortCode: c.config.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	resp, err := c.doRequest(ctx, "/mpesa/stkpushquery/v1/query", req)
	if err != nil {
		return nil, fmt.Errorf("failed to make query request: %w", err)
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(resp, &queryResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal query response: %w", err)
	}

	return &queryResp, nil
}

// ParseCallback decodes the asynchronous result Daraja posts back
func ParseCallback(body io.Reader) (*STKCallback, error) {
	var envelope CallbackEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode callback: %w", err)
	}

	callback := envelope.Body.STKCallback
	if callback.CheckoutRequestID == "" {
		return nil, ErrInvalidTransaction
	}
	return &callback, nil
}

// password builds the base64(shortcode + passkey + timestamp) credential
func (c *Client) password(timestamp string) string {
	raw := c.config.ShortCode + c.config.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// token returns a cached OAuth access token, refreshing it when expired
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	url := c.config.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.config.ConsumerKey, c.config.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrUnauthorized, resp.StatusCode)
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", ErrUnauthorized
	}

	// Daraja tokens last ~an hour; refresh a minute early
	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(59 * time.Minute)
	return c.accessToken, nil
}

// doRequest performs an authenticated HTTP request to the Daraja API
func (c *Client) doRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, string(body))
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, string(body))
		default:
			return nil, fmt.Errorf("%w: status %d, body: %s", ErrPaymentFailed, resp.StatusCode, string(body))
		}
	}

	return body, nil
}
