package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-bff/internal/common"
)

type cartEnvelope struct {
	Data struct {
		Lines      []Line `json:"lines"`
		CustomerID string `json:"customer_id"`
		Totals     Totals `json:"totals"`
	} `json:"data"`
}

func newTestHandler(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &Handler{
		Store:             &Store{R: client, TTL: time.Hour},
		MemberDiscountBps: DefaultMemberDiscountBps,
	}
	r := chi.NewRouter()
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{lineId}", h.UpdateItem)
	r.Delete("/cart/items/{lineId}", h.RemoveItem)
	r.Put("/cart/customer", h.SetCustomer)
	r.Delete("/cart/customer", h.ClearCustomer)
	r.Delete("/cart", h.Clear)
	return h, r
}

func sessionRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	}
	ctx := common.WithSubject(req.Context(), "sess-1")
	return req.WithContext(ctx)
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartEnvelope {
	t.Helper()
	var env cartEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandlerGetEmptyCart(t *testing.T) {
	_, r := newTestHandler(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodGet, "/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Empty(t, env.Data.Lines)
	require.Zero(t, env.Data.Totals.GrandTotal)
}

func TestHandlerRequiresSession(t *testing.T) {
	_, r := newTestHandler(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "token not found")
}

func TestHandlerAddItem(t *testing.T) {
	_, r := newTestHandler(t)

	body, _ := json.Marshal(unit("s1", 10000, 0, 3))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPost, "/cart/items", body))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Len(t, env.Data.Lines, 1)
	require.Equal(t, 1, env.Data.Lines[0].Quantity)
	require.Equal(t, Money(10000), env.Data.Totals.Subtotal)
}

func TestHandlerAddItemAtCeilingIsNoOp(t *testing.T) {
	_, r := newTestHandler(t)

	body, _ := json.Marshal(unit("s1", 10000, 0, 1))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPost, "/cart/items", body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPost, "/cart/items", body))
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeCart(t, rec)
	require.Equal(t, 1, env.Data.Lines[0].Quantity)
}

func TestHandlerAddItemRejectsMissingID(t *testing.T) {
	_, r := newTestHandler(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPost, "/cart/items", []byte(`{"price":100}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdateItemClampsQuantity(t *testing.T) {
	h, r := newTestHandler(t)

	_, err := h.Store.Update(context.Background(), "sess-1", func(c *Cart) {
		c.AddUnit(unit("s1", 10000, 0, 3))
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPatch, "/cart/items/s1", []byte(`{"qty":50}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Equal(t, 3, env.Data.Lines[0].Quantity)
}

func TestHandlerUpdateItemZeroRemoves(t *testing.T) {
	h, r := newTestHandler(t)

	_, err := h.Store.Update(context.Background(), "sess-1", func(c *Cart) {
		c.AddUnit(unit("s1", 10000, 0, 3))
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPatch, "/cart/items/s1", []byte(`{"qty":0}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Empty(t, env.Data.Lines)
}

func TestHandlerRemoveItem(t *testing.T) {
	h, r := newTestHandler(t)

	_, err := h.Store.Update(context.Background(), "sess-1", func(c *Cart) {
		c.AddUnit(unit("s1", 10000, 0, 3))
		c.AddUnit(unit("s2", 4000, 0, 3))
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodDelete, "/cart/items/s1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Len(t, env.Data.Lines, 1)
	require.Equal(t, "s2", env.Data.Lines[0].LineID)
}

func TestHandlerSetCustomerAppliesMemberDiscount(t *testing.T) {
	h, r := newTestHandler(t)

	_, err := h.Store.Update(context.Background(), "sess-1", func(c *Cart) {
		c.AddUnit(unit("s1", 10000, 0, 3))
		c.SetQuantity("s1", 2)
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPut, "/cart/customer", []byte(`{"customer_id":"cust-1"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Equal(t, "cust-1", env.Data.CustomerID)
	require.Equal(t, Money(400), env.Data.Totals.MemberDiscount)
	require.Equal(t, Money(19600), env.Data.Totals.GrandTotal)
}

func TestHandlerSetCustomerRequiresID(t *testing.T) {
	_, r := newTestHandler(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodPut, "/cart/customer", []byte(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerClearCustomer(t *testing.T) {
	h, r := newTestHandler(t)

	_, err := h.Store.Update(context.Background(), "sess-1", func(c *Cart) {
		c.SetCustomer("cust-1")
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodDelete, "/cart/customer", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Empty(t, env.Data.CustomerID)
}

func TestHandlerClearCart(t *testing.T) {
	h, r := newTestHandler(t)

	_, err := h.Store.Update(context.Background(), "sess-1", func(c *Cart) {
		c.AddUnit(unit("s1", 10000, 0, 3))
		c.SetCustomer("cust-1")
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, sessionRequest(http.MethodDelete, "/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeCart(t, rec)
	require.Empty(t, env.Data.Lines)
	require.Empty(t, env.Data.CustomerID)
}
