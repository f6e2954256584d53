package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/kasir-bff/internal/common"
	"github.com/noah-isme/kasir-bff/internal/obs"
	"github.com/noah-isme/kasir-bff/internal/upstream"
)

// Handler exposes the intake cost preview and the validated product
// submission pass-through.
type Handler struct {
	Upstream *upstream.Client
	Validate *validator.Validate
}

func NewHandler(up *upstream.Client) *Handler {
	return &Handler{Upstream: up, Validate: validator.New()}
}

// Preview computes the per-line cost breakdown for the intake form as
// currently filled. Purely local, nothing is persisted.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var in BatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	common.JSONData(w, http.StatusOK, Allocate(in.Batch()))
}

// submission is the validation view of the intake payload. The forwarded
// body is the raw bytes, not this struct; the API server receives exactly
// what the form posted.
type submission struct {
	SupplierID    string      `json:"supplier_id" validate:"required"`
	PaymentMethod string      `json:"payment_method" validate:"required,oneof=cash transfer tempo"`
	DuePayment    *string     `json:"due_payment"`
	Status        string      `json:"status" validate:"required,oneof=paid not_paid"`
	Product       []LineInput `json:"product" validate:"min=1"`
}

// Submit validates the intake payload and forwards it to the API server.
// The allocator's output never travels upstream; the server recomputes
// allocation from the raw rows itself.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read payload", nil)
		return
	}
	var sub submission
	if err := json.Unmarshal(body, &sub); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(sub); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid intake payload", validationDetails(err))
		return
	}
	if sub.PaymentMethod == "tempo" && (sub.DuePayment == nil || strings.TrimSpace(*sub.DuePayment) == "") {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "due_payment is required for tempo payments", nil)
		return
	}

	resp, err := h.Upstream.Do(r.Context(), http.MethodPost, "/products", nil, bytes.NewReader(body))
	if err != nil {
		if obs.IntakeSubmitTotal != nil {
			obs.IntakeSubmitTotal.WithLabelValues("unreachable").Inc()
		}
		upstream.WriteUnreachable(w)
		return
	}
	if obs.IntakeSubmitTotal != nil {
		result := "ok"
		if resp.StatusCode >= 400 {
			result = "rejected"
		}
		obs.IntakeSubmitTotal.WithLabelValues(result).Inc()
	}
	upstream.Relay(w, resp)
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
