package mpesa

import "encoding/json"

// tokenResponse is the OAuth response from the Daraja token endpoint
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushRequest represents the Lipa Na M-Pesa online payment request
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous acknowledgement of an STK push
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// QueryRequest asks Daraja for the state of a previous STK push
type QueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// QueryResponse is the synchronous answer to a QueryRequest
type QueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// CallbackEnvelope is the asynchronous payment result posted to the
// callback URL once the customer completes or dismisses the prompt.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback carries the final state of an STK push
type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// CallbackItem is a single name/value entry in the callback metadata
type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Result code 0 means the payment succeeded; 1032 is a user cancel.
const (
	ResultCodeSuccess   = 0
	ResultCodeCancelled = 1032
)

// Succeeded reports whether the callback carries a completed payment
func (c *STKCallback) Succeeded() bool {
	return c.ResultCode == ResultCodeSuccess
}

// Receipt extracts the M-Pesa receipt number from the callback metadata,
// or "" when the payment did not complete.
func (c *STKCallback) Receipt() string {
	return c.metadataString("MpesaReceiptNumber")
}

// Phone extracts the paying phone number from the callback metadata
func (c *STKCallback) Phone() string {
	return c.metadataString("PhoneNumber")
}

func (c *STKCallback) metadataString(name string) string {
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name {
			continue
		}
		var s string
		if err := json.Unmarshal(item.Value, &s); err == nil {
			return s
		}
		// Numeric values (phone numbers, amounts) arrive as JSON numbers
		var n json.Number
		if err := json.Unmarshal(item.Value, &n); err == nil {
			return n.String()
		}
	}
	return ""
}
