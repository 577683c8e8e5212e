package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:           "development",
		Port:          "8375",
		JWTSecret:     "secure-secret-at-least-32-chars-long",
		DBPassword:    "secure-password",
		DBSSLMode:     "require",
		PostTTLHours:  168,
		OTPTTLMinutes: 10,
		MailDriver:    "log",
		ImageStore:    "disk",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid development", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"non-positive post ttl", func(c *Config) { c.PostTTLHours = 0 }, true},
		{"unknown mail driver", func(c *Config) { c.MailDriver = "pigeon" }, true},
		{"s3 store without bucket", func(c *Config) { c.ImageStore = "s3" }, true},
		{"s3 store with bucket", func(c *Config) { c.ImageStore = "s3"; c.S3Bucket = "utvibe-images" }, false},
		{"production with default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
			c.MailDriver = "ses"
		}, true},
		{"production with log mailer", func(c *Config) { c.Env = "production" }, true},
		{"production smtp without credentials", func(c *Config) {
			c.Env = "prod"
			c.MailDriver = "smtp"
		}, true},
		{"production ses", func(c *Config) {
			c.Env = "production"
			c.MailDriver = "ses"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("POST_TTL_HOURS", "48")
	t.Setenv("MAIL_DRIVER", "LOG")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 48, c.PostTTLHours)
	assert.Equal(t, "log", c.MailDriver)
	assert.Equal(t, 10, c.OTPTTLMinutes)
	assert.False(t, c.IsProduction())
}
