package common

import (
	"net/http"
	"net/url"
	"strconv"
)

// ParseListQuery extracts page, limit, and search parameters from the request,
// falling back to upstream defaults. The values are forwarded verbatim so the
// upstream stays the authority on bounds.
func ParseListQuery(r *http.Request, defaultLimit int) url.Values {
	q := r.URL.Query()
	out := url.Values{}
	out.Set("page", positiveOrDefault(q.Get("page"), 1))
	out.Set("limit", positiveOrDefault(q.Get("limit"), defaultLimit))
	if search := q.Get("search"); search != "" {
		out.Set("search", search)
	}
	return out
}

func positiveOrDefault(value string, def int) string {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return strconv.Itoa(n)
	}
	return strconv.Itoa(def)
}
