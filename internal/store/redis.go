package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/metrics"
	"github.com/eco2-team/backend/domains/basket/internal/tracing"
)

const basketKeyPrefix = "/basket/"

// RedisClient is the minimal client surface the Store depends on.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

var _ RedisClient = (*redis.Client)(nil)

// PoolOptions contains Redis connection pool settings.
type PoolOptions struct {
	PoolSize     int           // Maximum number of connections
	MinIdleConns int           // Minimum idle connections to maintain
	PoolTimeout  time.Duration // Time to wait for a connection from the pool
	ReadTimeout  time.Duration // Timeout for read operations
	WriteTimeout time.Duration // Timeout for write operations
}

// Item is one product line in a basket.
type Item struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// Basket is a buyer's basket, stored as JSON under /basket/<buyerId>.
type Basket struct {
	BuyerID string `json:"buyerId"`
	Items   []Item `json:"items"`
}

type Store struct {
	client RedisClient
}

// New creates a new Store with the given Redis URL and pool options.
func New(ctx context.Context, redisURL string, poolOpts *PoolOptions) (*Store, error) {
	if poolOpts == nil {
		return nil, errors.New(constants.ErrPoolOptionsRequired)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrRedisURLParse, err)
	}

	// Apply pool options
	opts.PoolSize = poolOpts.PoolSize
	opts.MinIdleConns = poolOpts.MinIdleConns
	opts.PoolTimeout = poolOpts.PoolTimeout
	opts.ReadTimeout = poolOpts.ReadTimeout
	opts.WriteTimeout = poolOpts.WriteTimeout

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf(constants.ErrRedisConnect, err)
	}

	return &Store{client: client}, nil
}

func NewWithClient(client RedisClient) (*Store, error) {
	if client == nil {
		return nil, errors.New(constants.ErrRedisClientNil)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return errors.New(constants.ErrStoreNil)
	}
	if s.client == nil {
		return errors.New(constants.ErrRedisClientNil)
	}
	return s.client.Close()
}

// Ping reports whether Redis is reachable (readiness).
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf(constants.ErrRedisOperation, err)
	}
	return nil
}

// GetBasket returns the basket of userID, or nil when there is none.
func (s *Store) GetBasket(ctx context.Context, userID string) (*Basket, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New(constants.ErrBasketUserRequired)
	}

	ctx, span := startSpan(ctx, "GET", userID)
	defer span.End()
	defer observe(metrics.OperationGet, time.Now())

	data, err := s.client.Get(ctx, basketKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		tracing.SetError(ctx, err, "redis get failed")
		return nil, fmt.Errorf(constants.ErrRedisOperation, err)
	}

	var b Basket
	if err := json.Unmarshal(data, &b); err != nil {
		tracing.SetError(ctx, err, "basket decode failed")
		return nil, fmt.Errorf(constants.ErrBasketDecode, err)
	}
	return &b, nil
}

// UpdateBasket stores b and returns the stored basket.
func (s *Store) UpdateBasket(ctx context.Context, b *Basket) (*Basket, error) {
	if b == nil || strings.TrimSpace(b.BuyerID) == "" {
		return nil, errors.New(constants.ErrBasketUserRequired)
	}

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrBasketEncode, err)
	}

	setCtx, span := startSpan(ctx, "SET", b.BuyerID)
	start := time.Now()
	err = s.client.Set(setCtx, basketKey(b.BuyerID), data, 0).Err()
	observe(metrics.OperationUpdate, start)
	if err != nil {
		tracing.SetError(setCtx, err, "redis set failed")
		span.End()
		return nil, fmt.Errorf(constants.ErrRedisOperation, err)
	}
	span.End()

	return s.GetBasket(ctx, b.BuyerID)
}

// DeleteBasket removes the basket of userID. It reports whether one existed.
func (s *Store) DeleteBasket(ctx context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, errors.New(constants.ErrBasketUserRequired)
	}

	ctx, span := startSpan(ctx, "DEL", userID)
	defer span.End()
	defer observe(metrics.OperationDelete, time.Now())

	n, err := s.client.Del(ctx, basketKey(userID)).Result()
	if err != nil {
		tracing.SetError(ctx, err, "redis del failed")
		return false, fmt.Errorf(constants.ErrRedisOperation, err)
	}
	return n > 0, nil
}

func basketKey(userID string) string {
	return basketKeyPrefix + userID
}

// startSpan tags the span with the buyer id; the span redaction hook masks it.
func startSpan(ctx context.Context, op, userID string) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, "redis "+op,
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", op),
		attribute.String(constants.AttrUserID, userID),
	)
}

func observe(operation string, start time.Time) {
	metrics.RedisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
