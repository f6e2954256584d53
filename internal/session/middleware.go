package session

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/kasir-bff/internal/common"
)

// DefaultCookieName matches the cookie the web client has always used.
const DefaultCookieName = "access_token"

// Middleware extracts the bearer token from the auth cookie. The BFF never
// verifies the signature, the API server owns the keys; the token is only
// peeked at for its subject and expiry so per-session state can be keyed.
type Middleware struct {
	CookieName string
}

func (m Middleware) cookieName() string {
	if m.CookieName == "" {
		return DefaultCookieName
	}
	return m.CookieName
}

// Require rejects requests without an auth cookie and stores the token and
// session subject on the context for downstream handlers.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName())
		if err != nil || cookie.Value == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token not found", nil)
			return
		}
		subject, expired := peekToken(cookie.Value)
		if expired {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session expired", nil)
			return
		}
		ctx := common.WithToken(r.Context(), cookie.Value)
		ctx = common.WithSubject(ctx, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// peekToken reads the subject and expiry from the token without verifying
// it. An opaque or malformed token still yields a stable session key derived
// from the token bytes; the upstream decides whether it is actually valid.
func peekToken(raw string) (subject string, expired bool) {
	tok, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return hashedSubject(raw), false
	}
	if exp := tok.Expiration(); !exp.IsZero() && time.Now().After(exp) {
		return "", true
	}
	if sub := tok.Subject(); sub != "" {
		return sub, false
	}
	return hashedSubject(raw), false
}

func hashedSubject(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}
