package pipeline

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/octabyte/sentimind-session/otel"
)

type Config struct {
	BaseURL     string        `yaml:"base_url" env:"API_URL" env-default:"http://127.0.0.1:8000/api" validate:"required,url"`
	Timeout     time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
	ServiceName string        `yaml:"service_name" env:"API_SERVICE_NAME" env-default:"sentimind-client"`
}

// NewRestyClient builds the HTTP client shared by the pipeline and the refresh
// coordinator. Resty-level retries stay disabled; the pipeline owns retry policy.
func NewRestyClient(cfg Config) *resty.Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		OnBeforeRequest(otel.WithTraceHeaders)

	client.JSONMarshal = json.Marshal
	client.JSONUnmarshal = json.Unmarshal

	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return client
}
