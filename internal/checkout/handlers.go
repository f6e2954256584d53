package checkout

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-bff/internal/cart"
	"github.com/noah-isme/kasir-bff/internal/common"
	"github.com/noah-isme/kasir-bff/internal/obs"
	"github.com/noah-isme/kasir-bff/internal/printjob"
	"github.com/noah-isme/kasir-bff/internal/upstream"
)

// Handler turns a staged cart into a submitted transaction.
type Handler struct {
	Carts    *cart.Store
	Upstream *upstream.Client
	Printer  *printjob.Enqueuer
	Logger   zerolog.Logger
}

// Submit posts the cart to the API server as a single all-or-nothing call.
// The cart is cleared only on confirmed success; any failure leaves it
// untouched so the cashier can retry without re-scanning.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sub, ok := common.Subject(r.Context())
	if !ok || strings.TrimSpace(sub) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token not found", nil)
		return
	}
	c, err := h.Carts.Load(r.Context(), sub)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load cart", nil)
		return
	}
	if len(c.Lines) == 0 {
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart has no items", nil)
		return
	}

	body, err := json.Marshal(BuildPayload(c))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to build payload", nil)
		return
	}

	resp, err := h.Upstream.Do(r.Context(), http.MethodPost, "/transactions", nil, bytes.NewReader(body))
	if err != nil {
		if obs.TransactionSubmitTotal != nil {
			obs.TransactionSubmitTotal.WithLabelValues("unreachable").Inc()
		}
		upstream.WriteUnreachable(w)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", "API server unreachable", nil)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if obs.TransactionSubmitTotal != nil {
			obs.TransactionSubmitTotal.WithLabelValues("rejected").Inc()
		}
		relayBytes(w, resp, respBody)
		return
	}

	if err := h.Carts.Delete(r.Context(), sub); err != nil {
		// the sale went through; a stale cart is an inconvenience, not
		// a reason to report failure
		h.Logger.Error().Err(err).Str("session", sub).Msg("clear cart after checkout")
	}
	if obs.TransactionSubmitTotal != nil {
		obs.TransactionSubmitTotal.WithLabelValues("ok").Inc()
	}
	h.Printer.Enqueue(r.Context(), respBody)
	relayBytes(w, resp, respBody)
}

func relayBytes(w http.ResponseWriter, resp *http.Response, body []byte) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}
