package utility

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrTooManyAttempts is returned by rate limiters once the window is full.
var ErrTooManyAttempts = fmt.Errorf("too many attempts, please try again later")

// GetRealIP is a helper function to get the user's real IP address
// It checks proxy headers first.
func GetRealIP(c echo.Context) string {
	// This header can be a list: "client, proxy1, proxy2"
	if xForwardedFor := c.Request().Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	if xRealIP := c.Request().Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}

	return c.RealIP()
}

// AddRandomDelay sleeps 50-100ms so failed sign-ins take about as long as
// successful ones.
func AddRandomDelay() {
	const baseDelay = 50 * time.Millisecond

	// rand.Int(reader, max) returns a random int in [0, max-1]
	jitter, err := rand.Int(rand.Reader, big.NewInt(51))
	if err != nil {
		log.Warn().Err(err).Msg("crypto/rand failed, using base delay")
		time.Sleep(baseDelay)
		return
	}
	time.Sleep(baseDelay + time.Duration(jitter.Int64())*time.Millisecond)
}

// RateLimiter is a sliding-window limiter keyed by client IP.
type RateLimiter struct {
	window      time.Duration
	maxAttempts int
	attempts    sync.Map // ip -> []time.Time
	mu          sync.Mutex
}

// NewRateLimiter allows maxAttempts per window for each key.
func NewRateLimiter(window time.Duration, maxAttempts int) *RateLimiter {
	return &RateLimiter{window: window, maxAttempts: maxAttempts}
}

// Allow records an attempt for ip, or returns ErrTooManyAttempts.
func (l *RateLimiter) Allow(ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	val, _ := l.attempts.LoadOrStore(ip, []time.Time{})
	attempts := val.([]time.Time)

	// Remove old attempts
	var recent []time.Time
	for _, t := range attempts {
		if now.Sub(t) < l.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.maxAttempts {
		l.attempts.Store(ip, recent)
		return ErrTooManyAttempts
	}

	l.attempts.Store(ip, append(recent, now))
	return nil
}

// Reset forgets the attempts of ip.
func (l *RateLimiter) Reset(ip string) {
	l.attempts.Delete(ip)
}

var signinLimiter = NewRateLimiter(15*time.Minute, 10)

// CheckIPRateLimit applies the default sign-in limit of 10 attempts per 15 minutes.
func CheckIPRateLimit(ip string) error {
	return signinLimiter.Allow(ip)
}

// GetUserIDFromContext safely retrieves user ID from Echo context
func GetUserIDFromContext(c echo.Context) (string, error) {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RequestLogger returns the per-request logger set by the server
// middleware, or the global logger.
func RequestLogger(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get("logger").(*zerolog.Logger); ok {
		return logger
	}
	return &log.Logger
}
