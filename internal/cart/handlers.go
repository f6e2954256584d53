package cart

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kasir-bff/internal/common"
	"github.com/noah-isme/kasir-bff/internal/obs"
)

// Handler wires the session cart to HTTP.
type Handler struct {
	Store             *Store
	MemberDiscountBps int
}

func (h *Handler) rate() int {
	if h == nil || h.MemberDiscountBps <= 0 {
		return DefaultMemberDiscountBps
	}
	return h.MemberDiscountBps
}

func (h *Handler) respond(w http.ResponseWriter, status int, c Cart) {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	common.JSONData(w, status, map[string]any{
		"lines":       lines,
		"customer_id": c.CustomerID,
		"totals":      ComputeTotals(c, h.rate()),
	})
}

func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	sub, ok := common.Subject(r.Context())
	if !ok || strings.TrimSpace(sub) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token not found", nil)
		return "", false
	}
	return sub, true
}

// Get returns the cart contents plus the computed totals preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(w, r)
	if !ok {
		return
	}
	c, err := h.Store.Load(r.Context(), sub)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load cart", nil)
		return
	}
	h.respond(w, http.StatusOK, c)
}

// AddItem stages one more piece of the posted stock unit. Exceeding the
// available quantity leaves the cart unchanged and still returns 200; the
// capacity guard is a clamp, not an error.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(w, r)
	if !ok {
		return
	}
	var unit StockUnit
	if err := json.NewDecoder(r.Body).Decode(&unit); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(unit.ID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "stock unit id is required", nil)
		return
	}
	c, err := h.Store.Update(r.Context(), sub, func(c *Cart) { c.AddUnit(unit) })
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
		return
	}
	if obs.CartOperationsTotal != nil {
		obs.CartOperationsTotal.WithLabelValues("add").Inc()
	}
	h.respond(w, http.StatusOK, c)
}

// UpdateItem sets a line's quantity, clamped into [0, max]; zero removes the
// line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(w, r)
	if !ok {
		return
	}
	lineID := chi.URLParam(r, "lineId")
	var payload struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Store.Update(r.Context(), sub, func(c *Cart) { c.SetQuantity(lineID, payload.Qty) })
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
		return
	}
	if obs.CartOperationsTotal != nil {
		obs.CartOperationsTotal.WithLabelValues("set_qty").Inc()
	}
	h.respond(w, http.StatusOK, c)
}

// RemoveItem drops a line unconditionally.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(w, r)
	if !ok {
		return
	}
	lineID := chi.URLParam(r, "lineId")
	c, err := h.Store.Update(r.Context(), sub, func(c *Cart) { c.RemoveLine(lineID) })
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
		return
	}
	if obs.CartOperationsTotal != nil {
		obs.CartOperationsTotal.WithLabelValues("remove").Inc()
	}
	h.respond(w, http.StatusOK, c)
}

// SetCustomer attaches a member to the sale for loyalty discount eligibility.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(w, r)
	if !ok {
		return
	}
	var payload struct {
		CustomerID string `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(payload.CustomerID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "customer_id is required", nil)
		return
	}
	c, err := h.Store.Update(r.Context(), sub, func(c *Cart) { c.SetCustomer(payload.CustomerID) })
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
		return
	}
	h.respond(w, http.StatusOK, c)
}

// ClearCustomer detaches the selected member.
func (h *Handler) ClearCustomer(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(w, r)
	if !ok {
		return
	}
	c, err := h.Store.Update(r.Context(), sub, func(c *Cart) { c.ClearCustomer() })
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
		return
	}
	h.respond(w, http.StatusOK, c)
}

// Clear empties the cart and detaches the customer.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subject(w, r)
	if !ok {
		return
	}
	c, err := h.Store.Update(r.Context(), sub, func(c *Cart) { c.Clear() })
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
		return
	}
	if obs.CartOperationsTotal != nil {
		obs.CartOperationsTotal.WithLabelValues("clear").Inc()
	}
	h.respond(w, http.StatusOK, c)
}
