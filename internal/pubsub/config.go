package pubsub

import (
	"os"
	"strconv"
)

// LoadTracingConfigFromEnv overlays the PUBSUB_TRACING_* variables on
// DefaultTracingConfig. Unparseable values keep the default.
func LoadTracingConfigFromEnv() TracingConfig {
	cfg := DefaultTracingConfig()
	if v, err := strconv.ParseBool(os.Getenv("PUBSUB_TRACING_ENABLED")); err == nil {
		cfg.Enabled = v
	}
	if v := os.Getenv("PUBSUB_TRACING_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("PUBSUB_TRACING_ZIPKIN_URL"); v != "" {
		cfg.ZipkinURL = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("PUBSUB_TRACING_SAMPLE_RATIO"), 64); err == nil && v >= 0 && v <= 1 {
		cfg.SampleRatio = v
	}
	return cfg
}
