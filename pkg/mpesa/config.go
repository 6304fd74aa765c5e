package mpesa

// Config represents the configuration for the M-Pesa Daraja client
type Config struct {
	// ConsumerKey is the Daraja app consumer key
	ConsumerKey string

	// ConsumerSecret is the Daraja app consumer secret
	ConsumerSecret string

	// ShortCode is the business short code (till/paybill number)
	ShortCode string

	// Passkey is the Lipa Na M-Pesa online passkey
	Passkey string

	// BaseURL is the Daraja API base URL (sandbox or production)
	BaseURL string

	// CallbackURL receives the asynchronous STK push result
	CallbackURL string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ConsumerKey == "" {
		return ErrInvalidRequest
	}
	if c.ConsumerSecret == "" {
		return ErrInvalidRequest
	}
	if c.ShortCode == "" {
		return ErrInvalidRequest
	}
	if c.Passkey == "" {
		return ErrInvalidRequest
	}
	if c.BaseURL == "" {
		return ErrInvalidRequest
	}
	if c.CallbackURL == "" {
		return ErrInvalidRequest
	}
	return nil
}
