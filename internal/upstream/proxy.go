package upstream

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kasir-bff/internal/common"
)

// List returns a handler that relays a paginated collection read, passing
// page, limit and search through untouched. The upstream owns pagination
// semantics; the BFF only forwards.
func (c *Client) List(path string, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := common.ParseListQuery(r, defaultLimit)
		resp, err := c.Do(r.Context(), http.MethodGet, path, query, nil)
		if err != nil {
			WriteUnreachable(w)
			return
		}
		Relay(w, resp)
	}
}

// Forward returns a handler that relays the incoming request verbatim to the
// given upstream path, expanding chi route params named in the path. A path
// of "/stock/{id}/add" picks {id} off the matched route.
func (c *Client) Forward(method, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := c.Do(r.Context(), method, expandParams(r, path), r.URL.Query(), r.Body)
		if err != nil {
			WriteUnreachable(w)
			return
		}
		Relay(w, resp)
	}
}

// Relay copies the upstream response to the client byte for byte. 4xx and
// 5xx bodies pass through unchanged so upstream validation messages reach
// the cashier screen intact.
func Relay(w http.ResponseWriter, resp *http.Response) {
	defer func() { _ = resp.Body.Close() }()
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// WriteUnreachable reports that the API server could not be reached at all,
// as opposed to it answering with an error status.
func WriteUnreachable(w http.ResponseWriter) {
	common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", "API server unreachable", nil)
}

func expandParams(r *http.Request, path string) string {
	if !strings.Contains(path, "{") {
		return path
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			name := seg[1 : len(seg)-1]
			segments[i] = url.PathEscape(chi.URLParam(r, name))
		}
	}
	return strings.Join(segments, "/")
}
