package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultPartnerBaseURL = "https://partner.example.com"
	defaultHTTPTimeout    = 10 * time.Second
	defaultMaxRetries     = 3
	defaultBackoff        = time.Second
	defaultPartnerRPS     = 10
)

// IngestionSettings holds runtime settings for partner ingestion calls.
type IngestionSettings struct {
	PartnerAPIBaseURL string
	PartnerAPIToken   string
	HTTPTimeout       time.Duration
	HTTPMaxRetries    int
	HTTPBackoff       time.Duration

	// PartnerRequestsPerSecond caps outgoing partner calls. Zero disables
	// the cap.
	PartnerRequestsPerSecond int
}

// LoadIngestionSettings reads ingestion settings from the environment.
func LoadIngestionSettings() IngestionSettings {
	return IngestionSettings{
		PartnerAPIBaseURL: getEnv("PARTNER_API_BASE_URL", defaultPartnerBaseURL),
		PartnerAPIToken:   os.Getenv("PARTNER_API_TOKEN"),
		HTTPTimeout:       getDurationSecondsEnv("PARTNER_HTTP_TIMEOUT_SECONDS", defaultHTTPTimeout),
		HTTPMaxRetries:    getIntEnv("PARTNER_HTTP_MAX_RETRIES", defaultMaxRetries),
		HTTPBackoff:       getDurationSecondsEnv("PARTNER_HTTP_BACKOFF_SECONDS", defaultBackoff),

		PartnerRequestsPerSecond: getIntEnv("PARTNER_RPS", defaultPartnerRPS),
	}
}

// SafeForLogging returns the settings with the API token redacted.
func (s IngestionSettings) SafeForLogging() map[string]any {
	return map[string]any{
		"partner_api_base_url": s.PartnerAPIBaseURL,
		"partner_api_token":    redactSecret(s.PartnerAPIToken),
		"http_timeout_seconds": s.HTTPTimeout.Seconds(),
		"http_max_retries":     s.HTTPMaxRetries,
		"http_backoff_seconds": s.HTTPBackoff.Seconds(),
		"partner_rps":          s.PartnerRequestsPerSecond,
	}
}

func redactSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return "<redacted>"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func getDurationSecondsEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return time.Duration(v * float64(time.Second))
}
