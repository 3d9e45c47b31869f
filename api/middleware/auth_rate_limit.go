package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deorejayesh9663/UniTrade/api/responses"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

// maxCredentialPeek bounds how much of the body is buffered to find the email.
const maxCredentialPeek = 64 << 10

// RateLimitStore applies a fixed-window counter to a scope. The Redis client
// satisfies it.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one credential endpoint. A zero limit turns
// that dimension off.
type AuthRateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (p AuthRateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

func (p AuthRateLimitPolicy) scope(dimension, value string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return "auth:" + name + ":" + dimension + ":" + value
}

type rateCheck struct {
	dimension string
	value     string
	limit     int
}

// AuthRateLimit counts attempts per client IP and per submitted email. A
// store failure lets the request through.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var checks []rateCheck
			if ip := clientIP(r); policy.PerIP > 0 && ip != "" {
				checks = append(checks, rateCheck{dimension: "ip", value: ip, limit: policy.PerIP})
			}
			if policy.PerEmail > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if email != "" {
					checks = append(checks, rateCheck{dimension: "email", value: hashValue(email), limit: policy.PerEmail})
				}
			}

			for _, check := range checks {
				allowed, attempts, err := store.FixedWindowAllow(ctx, policy.scope(check.dimension, check.value), int64(check.limit), policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "auth.rate_limit.unavailable")
					}
					break
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.Name,
							"dimension": check.dimension,
							"attempts":  attempts,
							"limit":     check.limit,
						}), "auth.rate_limit.blocked")
					}
					w.Header().Set("Retry-After", retryAfter(policy.Window))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail reads the email field and restores the body for the handler.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialPeek))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(body.Email)), nil
}

func retryAfter(window time.Duration) string {
	seconds := int(window.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
