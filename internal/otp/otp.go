// Package otp issues and checks the email verification codes used at sign-up.
// Each address gets a fresh TOTP secret in Redis whose lifetime bounds the code.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"utvibe/internal/models"
	"utvibe/internal/observability"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
)

const (
	Issuer             = "UT Vibe"
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
	VerifiedTTL        = 30 * time.Minute
)

var (
	ErrInvalidCode     = models.NewValidationError("Invalid verification code. Please try again.")
	ErrTooManyAttempts = models.NewValidationError("Too many attempts. Please request a new code.")
	ErrUnavailable     = models.NewInternalError("Verification is temporarily unavailable", nil)
)

func secretKey(email string) string   { return "otp:" + email }
func attemptsKey(email string) string { return "otp:attempts:" + email }
func verifiedKey(email string) string { return "otp:verified:" + email }

type Store struct {
	rdb         *redis.Client
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewStore(rdb *redis.Client, ttl time.Duration, maxAttempts int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{rdb: rdb, ttl: ttl, maxAttempts: maxAttempts, now: time.Now}
}

// TTL is how long an issued code stays valid.
func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(s.ttl / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Issue replaces any pending code for email and returns the new six digit code.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	if s.rdb == nil {
		return "", ErrUnavailable
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: email,
		Period:      uint(s.ttl / time.Second),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}

	code, err := totp.GenerateCodeCustom(key.Secret(), s.now(), s.validateOpts())
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, secretKey(email), key.Secret(), s.ttl)
		pipe.Del(ctx, attemptsKey(email))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store otp secret: %w", err)
	}

	observability.OTPEvents.WithLabelValues("issue", "ok").Inc()
	return code, nil
}

// Verify checks code for email. A correct code burns the secret and marks the
// address verified for VerifiedTTL. Exceeding the attempt budget burns it too.
func (s *Store) Verify(ctx context.Context, email, code string) (err error) {
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			outcome = "locked"
		case errors.Is(err, ErrInvalidCode):
			outcome = "invalid"
		case err != nil:
			outcome = "error"
		}
		observability.OTPEvents.WithLabelValues("verify", outcome).Inc()
	}()

	if s.rdb == nil {
		return ErrUnavailable
	}

	secret, err := s.rdb.Get(ctx, secretKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("load otp secret: %w", err)
	}

	attempts, err := s.rdb.Incr(ctx, attemptsKey(email)).Result()
	if err != nil {
		return fmt.Errorf("count otp attempts: %w", err)
	}
	if attempts == 1 {
		s.rdb.Expire(ctx, attemptsKey(email), s.ttl)
	}
	if attempts > int64(s.maxAttempts) {
		s.rdb.Del(ctx, secretKey(email), attemptsKey(email))
		return ErrTooManyAttempts
	}

	ok, err := totp.ValidateCustom(code, secret, s.now(), s.validateOpts())
	if err != nil || !ok {
		return ErrInvalidCode
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, secretKey(email), attemptsKey(email))
		pipe.Set(ctx, verifiedKey(email), "1", VerifiedTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

// IsVerified reports whether email passed Verify recently.
func (s *Store) IsVerified(ctx context.Context, email string) (bool, error) {
	if s.rdb == nil {
		return false, ErrUnavailable
	}
	n, err := s.rdb.Exists(ctx, verifiedKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Consume clears the verified marker once an account has been created.
func (s *Store) Consume(ctx context.Context, email string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, verifiedKey(email))
	}
}
