package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"Checkout/internal/auth"
	"Checkout/internal/basket"
	"Checkout/pkg/kit"
)

type Server struct {
	Calculator *basket.Calculator
	Store      Store
	Log        *zap.Logger
	Metrics    *Metrics
}

type basketReq struct {
	Items []string `json:"items"`
}

const maxBasketBody = 1 << 20

var errBadJSON = errors.New("bad json")

func (s *Server) QuoteHandler() http.HandlerFunc         { return s.quote }
func (s *Server) CreateReceiptHandler() http.HandlerFunc { return s.createReceipt }
func (s *Server) GetReceiptHandler() http.HandlerFunc    { return s.getReceipt }

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBasketRequest(w, r)
	if err != nil {
		s.writePricingError(w, r, err)
		return
	}

	q, err := s.price(req.Items)
	if err != nil {
		s.writePricingError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, q)
}

func (s *Server) createReceipt(w http.ResponseWriter, r *http.Request) {
	shopper, ok := auth.ShopperFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no shopper", nil)
		return
	}

	req, err := decodeBasketRequest(w, r)
	if err != nil {
		s.writePricingError(w, r, err)
		return
	}

	q, err := s.price(req.Items)
	if err != nil {
		s.writePricingError(w, r, err)
		return
	}

	rc := Receipt{
		ShopperID:  shopper,
		Items:      req.Items,
		Lines:      q.Lines,
		TotalCents: q.Total,
		CreatedAt:  time.Now().UTC(),
	}

	// One retry on an id collision.
	for attempt := 0; attempt < 2; attempt++ {
		rc.ID = "r_" + uuid.NewString()
		if err = s.Store.Create(r.Context(), rc); !errors.Is(err, ErrReceiptExists) {
			break
		}
	}

	if err != nil {
		if errors.Is(err, ErrReceiptExists) {
			kit.WriteError(w, r, http.StatusConflict, "receipt already exists", nil)
			return
		}
		if isTimeoutErr(err) {
			kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
			return
		}
		if s.Log != nil {
			s.Log.Error("store create receipt failed", zap.Error(err), zap.String("receipt_id", rc.ID))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusCreated, rc)
}

func (s *Server) getReceipt(w http.ResponseWriter, r *http.Request) {
	shopper, ok := auth.ShopperFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no shopper", nil)
		return
	}

	id := chi.URLParam(r, "id")
	rc, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("store get receipt failed", zap.Error(err), zap.String("receipt_id", id))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	if rc.ShopperID != shopper {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, rc)
}

func (s *Server) price(items []string) (basket.Quote, error) {
	q, err := s.Calculator.Quote(items)
	if err != nil {
		return basket.Quote{}, err
	}
	s.Metrics.observePriced(q.Total)
	return q, nil
}

func decodeBasketRequest(w http.ResponseWriter, r *http.Request) (basketReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBasketBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req basketReq
	if err := dec.Decode(&req); err != nil {
		return basketReq{}, errBadJSON
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return basketReq{}, errBadJSON
	}

	return req, nil
}

func (s *Server) writePricingError(w http.ResponseWriter, r *http.Request, err error) {
	var unknown *basket.UnknownItemsError

	switch {
	case errors.As(err, &unknown):
		s.Metrics.observeRejected(reasonUnknownItems)
		kit.WriteError(w, r, http.StatusUnprocessableEntity, unknown.Error(), map[string]any{
			"unknown_items": unknown.Items,
		})
	case errors.Is(err, basket.ErrInvalidInput), errors.Is(err, errBadJSON):
		s.Metrics.observeRejected(reasonInvalidInput)
		kit.WriteError(w, r, http.StatusBadRequest, "invalid basket", nil)
	default:
		if s.Log != nil {
			s.Log.Error("pricing failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
