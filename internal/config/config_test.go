package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, DefaultGRPCPort, cfg.GRPCPort)
	assert.Equal(t, DefaultRedisPoolSize, cfg.RedisPoolSize)
	assert.Equal(t, DefaultAMQPQueue, cfg.AMQPQueue)
	assert.Empty(t, cfg.RedactPolicyFile)
	assert.True(t, cfg.OTelEnabled)
	assert.False(t, cfg.OTelLogsEnabled)
	assert.InDelta(t, DefaultOTelSamplingRate, cfg.OTelSamplingRate, 1e-9)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BASKET_HTTP_PORT", "18080")
	t.Setenv("BASKET_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")
	t.Setenv("AMQP_URL", "")
	t.Setenv("REDACT_POLICY_FILE", "/etc/basket/redact.yaml")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_LOGS_ENABLED", "1")
	t.Setenv("OTEL_SAMPLING_RATE", "0.25")

	cfg := Load()

	assert.Equal(t, 18080, cfg.HTTPPort)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, DefaultRedisPoolSize, cfg.RedisPoolSize, "invalid ints fall back")
	assert.Empty(t, cfg.AMQPURL, "set but empty disables the consumer")
	assert.Equal(t, "/etc/basket/redact.yaml", cfg.RedactPolicyFile)
	assert.False(t, cfg.OTelEnabled)
	assert.True(t, cfg.OTelLogsEnabled)
	assert.InDelta(t, 0.25, cfg.OTelSamplingRate, 1e-9)
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("FLAG_ON", "Yes")
	t.Setenv("FLAG_OFF", "no")
	t.Setenv("FLAG_BAD", "maybe")

	assert.True(t, getEnvAsBool("FLAG_ON", false))
	assert.False(t, getEnvAsBool("FLAG_OFF", true))
	assert.True(t, getEnvAsBool("FLAG_BAD", true))
	assert.False(t, getEnvAsBool("FLAG_UNSET", false))
}
