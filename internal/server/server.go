package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/jwt"
	"github.com/eco2-team/backend/domains/basket/internal/logging"
	"github.com/eco2-team/backend/domains/basket/internal/metrics"
	"github.com/eco2-team/backend/domains/basket/internal/store"
	"github.com/eco2-team/backend/domains/basket/internal/tracing"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (jwt.Claims, error)
}

// BasketStore is the basket repository used by the API.
type BasketStore interface {
	GetBasket(ctx context.Context, userID string) (*store.Basket, error)
	UpdateBasket(ctx context.Context, b *store.Basket) (*store.Basket, error)
	DeleteBasket(ctx context.Context, userID string) (bool, error)
}

var _ BasketStore = (*store.Store)(nil)

// BasketServer serves GET/PUT/DELETE /api/basket for the caller identified by
// the bearer token's sub claim.
type BasketServer struct {
	verifier TokenVerifier
	store    BasketStore
	logger   *logging.Logger
}

func New(verifier TokenVerifier, basketStore BasketStore, logger *logging.Logger) (*BasketServer, error) {
	if verifier == nil {
		return nil, errors.New(constants.ErrVerifierRequired)
	}
	if basketStore == nil {
		return nil, errors.New(constants.ErrStoreRequired)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BasketServer{verifier: verifier, store: basketStore, logger: logger}, nil
}

// BasketItem is the wire form of a basket line.
type BasketItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// BasketResponse is returned by every basket call.
type BasketResponse struct {
	Items []BasketItem `json:"items"`
}

// UpdateBasketRequest replaces the caller's basket.
type UpdateBasketRequest struct {
	Items []BasketItem `json:"items"`
}

// Handler returns the basket API wrapped in otelhttp server spans.
func (s *BasketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+constants.PathBasket, s.getBasket)
	mux.HandleFunc(http.MethodPut+" "+constants.PathBasket, s.updateBasket)
	mux.HandleFunc(http.MethodDelete+" "+constants.PathBasket, s.deleteBasket)

	return otelhttp.NewHandler(withRequestID(mux), constants.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

type requestIDKey struct{}

// withRequestID propagates x-request-id, generating one when absent.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(constants.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(constants.HeaderRequestID, id)
		tracing.SpanFromContext(r.Context()).SetAttributes(attribute.String(constants.AttrRequestID, id))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// call tracks one API call for metrics and logs.
type call struct {
	s         *BasketServer
	r         *http.Request
	action    string
	operation string
	start     time.Time
}

func (s *BasketServer) begin(r *http.Request, action, operation string) *call {
	metrics.RequestsInFlight.Inc()
	return &call{s: s, r: r, action: action, operation: operation, start: time.Now()}
}

func (c *call) ok(userID string) {
	defer metrics.RequestsInFlight.Dec()
	d := time.Since(c.start)
	metrics.RequestDuration.WithLabelValues(c.operation, metrics.ResultSuccess).Observe(d.Seconds())
	metrics.RequestsTotal.WithLabelValues(c.operation, metrics.ResultSuccess).Inc()
	c.s.logger.BasketOK(c.r.Context(), c.action, c.r.Method, c.r.URL.Path, requestID(c.r.Context()), userID, d)
}

func (c *call) fail(reason string, err error) {
	defer metrics.RequestsInFlight.Dec()
	d := time.Since(c.start)
	metrics.RequestDuration.WithLabelValues(c.operation, metrics.ResultFailure).Observe(d.Seconds())
	metrics.RequestsTotal.WithLabelValues(c.operation, metrics.ResultFailure).Inc()
	c.s.logger.BasketFail(c.r.Context(), c.action, c.r.Method, c.r.URL.Path, requestID(c.r.Context()), reason, d, err)
}

// authenticate returns the caller's user id. ok is false when the header is
// absent; err is set when a token was presented but rejected.
func (s *BasketServer) authenticate(r *http.Request) (userID string, ok bool, err error) {
	header := strings.TrimSpace(r.Header.Get(constants.HeaderAuthorization))
	if header == "" {
		return "", false, nil
	}
	claims, err := s.verifier.Verify(header)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeJWTVerify).Inc()
		return "", true, err
	}
	return jwt.UserID(claims), true, nil
}

func (s *BasketServer) getBasket(w http.ResponseWriter, r *http.Request) {
	c := s.begin(r, constants.EventActionBasketGet, metrics.OperationGet)
	span := tracing.SpanFromContext(r.Context())
	tracing.AddEvent(r.Context(), "Get Basket")

	userID, present, err := s.authenticate(r)
	if err != nil {
		c.fail(constants.ReasonInvalidToken, err)
		writeError(w, http.StatusUnauthorized, constants.MsgInvalidToken)
		return
	}
	if !present {
		// Anonymous callers get an empty basket.
		tracing.AddEvent(r.Context(), "User is not authenticated")
		c.ok("")
		writeJSON(w, http.StatusOK, BasketResponse{Items: []BasketItem{}})
		return
	}
	span.SetAttributes(attribute.String(constants.AttrUserID, userID))

	b, err := s.store.GetBasket(r.Context(), userID)
	if err != nil {
		c.fail(constants.ReasonRedisError, err)
		tracing.RecordError(r.Context(), err)
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeRedis).Inc()
		writeError(w, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}
	if b == nil || len(b.Items) == 0 {
		tracing.AddEvent(r.Context(), "Empty Basket or Basket Not Found")
		c.ok(userID)
		writeJSON(w, http.StatusOK, BasketResponse{Items: []BasketItem{}})
		return
	}

	resp := toResponse(b)
	span.SetAttributes(
		attribute.String(constants.AttrBasketItems, describeItems(resp.Items)),
		attribute.Int(constants.AttrBasketUniqueCount, len(resp.Items)),
	)
	tracing.AddEvent(r.Context(), "Not Empty Basket Found")
	c.ok(userID)
	writeJSON(w, http.StatusOK, resp)
}

func (s *BasketServer) updateBasket(w http.ResponseWriter, r *http.Request) {
	c := s.begin(r, constants.EventActionBasketUpdate, metrics.OperationUpdate)

	userID, ok := s.requireUser(w, r, c)
	if !ok {
		return
	}
	tracing.SpanFromContext(r.Context()).SetAttributes(attribute.String(constants.AttrUserID, userID))

	var req UpdateBasketRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		c.fail(constants.ReasonBadRequest, err)
		writeError(w, http.StatusBadRequest, constants.MsgMalformedBasket)
		return
	}

	b := &store.Basket{BuyerID: userID, Items: make([]store.Item, 0, len(req.Items))}
	for _, it := range req.Items {
		b.Items = append(b.Items, store.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	saved, err := s.store.UpdateBasket(r.Context(), b)
	if err != nil {
		c.fail(constants.ReasonRedisError, err)
		tracing.RecordError(r.Context(), err)
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeRedis).Inc()
		writeError(w, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}
	if saved == nil {
		err := fmt.Errorf("basket with buyer id %s does not exist", userID)
		c.fail(constants.ReasonRedisError, err)
		writeError(w, http.StatusNotFound, "Basket not found")
		return
	}

	c.ok(userID)
	writeJSON(w, http.StatusOK, toResponse(saved))
}

func (s *BasketServer) deleteBasket(w http.ResponseWriter, r *http.Request) {
	c := s.begin(r, constants.EventActionBasketDelete, metrics.OperationDelete)

	userID, ok := s.requireUser(w, r, c)
	if !ok {
		return
	}

	s.logger.WithContext(r.Context()).InfoContext(r.Context(), "Deleting basket for userId:"+userID)
	tracing.SpanFromContext(r.Context()).SetAttributes(attribute.String(constants.AttrUserID, userID))

	if _, err := s.store.DeleteBasket(r.Context(), userID); err != nil {
		c.fail(constants.ReasonRedisError, err)
		tracing.RecordError(r.Context(), err)
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeRedis).Inc()
		writeError(w, http.StatusInternalServerError, constants.MsgInternalError)
		return
	}

	c.ok(userID)
	w.WriteHeader(http.StatusNoContent)
}

// requireUser writes 401 and returns false when the caller is not authenticated.
func (s *BasketServer) requireUser(w http.ResponseWriter, r *http.Request, c *call) (string, bool) {
	userID, present, err := s.authenticate(r)
	switch {
	case !present:
		tracing.AddEvent(r.Context(), "User is not authenticated")
		c.fail(constants.ReasonMissingHeader, nil)
		writeError(w, http.StatusUnauthorized, constants.MsgMissingAuthHeader)
		return "", false
	case err != nil:
		c.fail(constants.ReasonInvalidToken, err)
		writeError(w, http.StatusUnauthorized, constants.MsgInvalidToken)
		return "", false
	}
	return userID, true
}

func toResponse(b *store.Basket) BasketResponse {
	resp := BasketResponse{Items: make([]BasketItem, 0, len(b.Items))}
	for _, it := range b.Items {
		resp.Items = append(resp.Items, BasketItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return resp
}

// describeItems renders items as "(productId,quantity);..." for span tags.
func describeItems(items []BasketItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("(%d,%d)", it.ProductID, it.Quantity)
	}
	return strings.Join(parts, ";")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
