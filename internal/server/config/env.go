package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors Config with pointer fields so that only variables
// actually present in the environment are overlaid. env/v11 leaves a
// pointer nil when the variable is unset.
type envConfig struct {
	EndpointAddrHTTP             *string        `env:"HTTP_ADDR"`
	PublicBaseURL                *string        `env:"PUBLIC_BASE_URL"`
	DatabaseDSN                  *string        `env:"DATABASE_DSN"`
	SecretKey                    *string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration  *time.Duration `env:"ACCESS_TOKEN_VALIDITY"`
	RefreshTokenValidityDuration *time.Duration `env:"REFRESH_TOKEN_VALIDITY"`
	VerifyTokenValidityDuration  *time.Duration `env:"VERIFY_TOKEN_VALIDITY"`
	RequireVerifiedLogin         *bool          `env:"REQUIRE_VERIFIED_LOGIN"`
	S3RootUser                   *string        `env:"S3_ROOT_USER"`
	S3RootPassword               *string        `env:"S3_ROOT_PASSWORD"`
	S3Bucket                     *string        `env:"S3_BUCKET"`
	S3Region                     *string        `env:"S3_REGION"`
	S3BaseEndpoint               *string        `env:"S3_BASE_ENDPOINT"`
	SMTPHost                     *string        `env:"SMTP_HOST"`
	SMTPPort                     *int           `env:"SMTP_PORT"`
	SMTPUser                     *string        `env:"SMTP_USER"`
	SMTPPassword                 *string        `env:"SMTP_PASSWORD"`
	SMTPFrom                     *string        `env:"SMTP_FROM"`
	MailQueueSize                *int           `env:"MAIL_QUEUE_SIZE"`
	RedisAddr                    *string        `env:"REDIS_ADDR"`
	RedisPassword                *string        `env:"REDIS_PASSWORD"`
	RedisDB                      *int           `env:"REDIS_DB"`
	RateLimitRequests            *int           `env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow              *time.Duration `env:"RATE_LIMIT_WINDOW"`
	MaxUploadSize                *int64         `env:"MAX_UPLOAD_SIZE"`
	AllowedOrigin                *string        `env:"ALLOWED_ORIGIN"`
}

// parseEnv overlays configuration values from environment variables onto
// the provided Config. Unset variables leave the current values untouched.
// Malformed values (e.g. an unparsable duration) cause a panic, matching
// the JSON loader's behavior.
func parseEnv(config *Config) {
	c := &envConfig{}
	if err := env.Parse(c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != nil {
		config.EndpointAddrHTTP = *c.EndpointAddrHTTP
	}
	if c.PublicBaseURL != nil {
		config.PublicBaseURL = *c.PublicBaseURL
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = *c.AccessTokenValidityDuration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = *c.RefreshTokenValidityDuration
	}
	if c.VerifyTokenValidityDuration != nil {
		config.VerifyTokenValidityDuration = *c.VerifyTokenValidityDuration
	}
	if c.RequireVerifiedLogin != nil {
		config.RequireVerifiedLogin = *c.RequireVerifiedLogin
	}
	if c.S3RootUser != nil {
		config.S3RootUser = *c.S3RootUser
	}
	if c.S3RootPassword != nil {
		config.S3RootPassword = *c.S3RootPassword
	}
	if c.S3Bucket != nil {
		config.S3Bucket = *c.S3Bucket
	}
	if c.S3Region != nil {
		config.S3Region = *c.S3Region
	}
	if c.S3BaseEndpoint != nil {
		config.S3BaseEndpoint = *c.S3BaseEndpoint
	}
	if c.SMTPHost != nil {
		config.SMTPHost = *c.SMTPHost
	}
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	if c.SMTPUser != nil {
		config.SMTPUser = *c.SMTPUser
	}
	if c.SMTPPassword != nil {
		config.SMTPPassword = *c.SMTPPassword
	}
	if c.SMTPFrom != nil {
		config.SMTPFrom = *c.SMTPFrom
	}
	if c.MailQueueSize != nil {
		config.MailQueueSize = *c.MailQueueSize
	}
	if c.RedisAddr != nil {
		config.RedisAddr = *c.RedisAddr
	}
	if c.RedisPassword != nil {
		config.RedisPassword = *c.RedisPassword
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.RateLimitRequests != nil {
		config.RateLimitRequests = *c.RateLimitRequests
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = *c.RateLimitWindow
	}
	if c.MaxUploadSize != nil {
		config.MaxUploadSize = *c.MaxUploadSize
	}
	if c.AllowedOrigin != nil {
		config.AllowedOrigin = *c.AllowedOrigin
	}
}
