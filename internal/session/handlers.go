package session

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/noah-isme/kasir-bff/internal/common"
	"github.com/noah-isme/kasir-bff/internal/upstream"
)

// Handler proxies login to the API server and owns the auth cookie. The
// token never reaches client-side script; it lives in an HttpOnly cookie the
// BFF sets and clears.
type Handler struct {
	Upstream   *upstream.Client
	CookieName string
	CookieTTL  time.Duration
	Domain     string
	Secure     bool
	SameSite   http.SameSite
}

func (h *Handler) cookieName() string {
	if h.CookieName == "" {
		return DefaultCookieName
	}
	return h.CookieName
}

func (h *Handler) cookieTTL() time.Duration {
	if h.CookieTTL <= 0 {
		return time.Hour
	}
	return h.CookieTTL
}

// Login forwards the credentials to the API server and, on success, moves
// the returned token into the auth cookie. The response body is relayed with
// the token stripped so it never appears in a script-readable place.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Upstream.Do(r.Context(), http.MethodPost, "/auth/login", nil, r.Body)
	if err != nil {
		upstream.WriteUnreachable(w)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		upstream.WriteUnreachable(w)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
		return
	}

	token := extractToken(body)
	if token == "" {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_PROTOCOL", "login response carried no token", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    token,
		Path:     "/",
		Domain:   h.Domain,
		MaxAge:   int(h.cookieTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: h.sameSite(),
	})
	common.JSONData(w, http.StatusOK, map[string]any{"logged_in": true})
}

// Logout clears the auth cookie. There is no upstream session to revoke,
// the token simply stops being presented.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName(),
		Value:    "",
		Path:     "/",
		Domain:   h.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: h.sameSite(),
	})
	common.JSONData(w, http.StatusOK, map[string]any{"logged_in": false})
}

func (h *Handler) sameSite() http.SameSite {
	if h.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return h.SameSite
}

// extractToken digs the token out of the login response. The API server
// wraps it as {"data":{"token":...}}; a bare {"token":...} is accepted too.
func extractToken(body []byte) string {
	var envelope struct {
		Token string `json:"token"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Data.Token != "" {
		return envelope.Data.Token
	}
	return envelope.Token
}
