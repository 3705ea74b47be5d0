// Package config loads application configuration from the environment.
package config

import (
	"time"
)

type DB struct {
	Url string `envconfig:"URL"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Stripe struct {
	ApiKey        string `envconfig:"API_KEY"`
	SigningSecret string `envconfig:"SIGNING_SECRET"`
	SuccessPath   string `envconfig:"SUCCESS_PATH" default:"http://localhost:3000/dashboard/credits?success=true"`
	CancelPath    string `envconfig:"CANCEL_PATH" default:"http://localhost:3000/dashboard/credits?success=false"`
	Currency      string `envconfig:"CURRENCY" default:"eur"`
}

type Gemini struct {
	ApiKey         string        `envconfig:"API_KEY"`
	Model          string        `envconfig:"MODEL" default:"gemini-2.0-flash-lite"`
	EmbeddingModel string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"45s"`
}

// Credits holds credit pricing and consumption policy. Prices are cents per
// credit so arithmetic stays integral until checkout.
type Credits struct {
	BasePriceCents    int64   `envconfig:"BASE_PRICE_CENTS" default:"22"`
	ProDiscount       float64 `envconfig:"PRO_DISCOUNT" default:"0.35"`
	MinPurchaseEUR    int64   `envconfig:"MIN_PURCHASE_EUR" default:"6"`
	MaxPurchaseEUR    int64   `envconfig:"MAX_PURCHASE_EUR" default:"1000"`
	AnalysisCost      int64   `envconfig:"ANALYSIS_COST" default:"1"`
	SubscriptionGrant int64   `envconfig:"SUBSCRIPTION_GRANT" default:"100"`
}

type Redis struct {
	URL string `envconfig:"URL"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[tradelens]"`
}

type Server struct {
	Host string `envconfig:"HOST" default:"localhost"`
	Port int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Stripe    *Stripe    `envconfig:"STRIPE"`
	Gemini    *Gemini    `envconfig:"GEMINI"`
	Credits   *Credits   `envconfig:"CREDITS"`
	Redis     *Redis     `envconfig:"REDIS"`
}

// PricePerCreditCents returns the per-credit price in cents, applying the
// pro discount for subscribed users.
func (c *Credits) PricePerCreditCents(pro bool) float64 {
	price := float64(c.BasePriceCents)
	if pro {
		price *= 1 - c.ProDiscount
	}
	return price
}

// CreditsForAmount converts a purchase amount in EUR to whole credits at the
// caller's price tier, rounding down.
func (c *Credits) CreditsForAmount(amountEUR int64, pro bool) int64 {
	return int64(float64(amountEUR*100) / c.PricePerCreditCents(pro))
}
