package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		BaseURL:        baseURL,
		CallbackURL:    "http://localhost:8080/api/v1/payments/callback",
	}
}

func newTestServer(t *testing.T, pushHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "test-token",
			"expires_in":   "3599",
		})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", pushHandler)
	return httptest.NewServer(mux)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		want    string
		wantErr bool
	}{
		{name: "Safaricom prefix", phone: "0712345678", want: "254712345678"},
		{name: "Airtel prefix", phone: "0101234567", want: "254101234567"},
		{name: "Too short", phone: "071234567", wantErr: true},
		{name: "Wrong prefix", phone: "0812345678", wantErr: true},
		{name: "Empty", phone: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.phone)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_STKPush_Success(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req STKPushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "174379", req.BusinessShortCode)
		assert.Equal(t, "254712345678", req.PhoneNumber)
		assert.Equal(t, "250", req.Amount)

		json.NewEncoder(w).Encode(STKPushResponse{
			MerchantRequestID:   "merchant-1",
			CheckoutRequestID:   "ws_CO_123",
			ResponseCode:        "0",
			ResponseDescription: "Success. Request accepted for processing",
		})
	})
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	resp, err := client.STKPush(context.Background(), "0712345678", 250, "ORDER-7", "Freshly order")
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_123", resp.CheckoutRequestID)
}

func TestClient_STKPush_InvalidPhone(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:1"))
	require.NoError(t, err)

	_, err = client.STKPush(context.Background(), "12345", 100, "ORDER-1", "desc")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestClient_STKPush_Rejected(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(STKPushResponse{
			ResponseCode:        "1",
			ResponseDescription: "Invalid Amount",
		})
	})
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.STKPush(context.Background(), "0712345678", 250, "ORDER-7", "Freshly order")
	assert.ErrorIs(t, err, ErrPaymentFailed)
}

func TestParseCallback_Success(t *testing.T) {
	body := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 250.00},
						{"Name": "MpesaReceiptNumber", "Value": "QGR7TYU8XA"},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`

	callback, err := ParseCallback(strings.NewReader(body))
	require.NoError(t, err)
	assert.True(t, callback.Succeeded())
	assert.Equal(t, "ws_CO_123", callback.CheckoutRequestID)
	assert.Equal(t, "QGR7TYU8XA", callback.Receipt())
	assert.Equal(t, "254712345678", callback.Phone())
}

func TestParseCallback_Cancelled(t *testing.T) {
	body := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "merchant-1",
				"CheckoutRequestID": "ws_CO_456",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`

	callback, err := ParseCallback(strings.NewReader(body))
	require.NoError(t, err)
	assert.False(t, callback.Succeeded())
	assert.Equal(t, ResultCodeCancelled, callback.ResultCode)
	assert.Empty(t, callback.Receipt())
}

func TestParseCallback_Malformed(t *testing.T) {
	_, err := ParseCallback(strings.NewReader(`{"Body":{}}`))
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = ParseCallback(strings.NewReader(`not json`))
	assert.Error(t, err)
}
