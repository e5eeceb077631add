package billing

type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string

	// BaseURL is where Stripe redirects after checkout.
	BaseURL string
}
