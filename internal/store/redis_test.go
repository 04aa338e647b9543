package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedisClient struct {
	data       map[string]string
	getErr     error
	setErr     error
	delErr     error
	pingReturn *redis.StatusCmd
	closeErr   error
	lastKeys   []string
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{data: map[string]string{}}
}

func (f *fakeRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	f.lastKeys = []string{key}
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedisClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.lastKeys = []string{key}
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.lastKeys = keys
	if f.delErr != nil {
		return redis.NewIntResult(0, f.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	if f.pingReturn != nil {
		return f.pingReturn
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedisClient) Close() error {
	return f.closeErr
}

func newTestStore(t *testing.T, client *fakeRedisClient) *Store {
	t.Helper()
	s, err := NewWithClient(client)
	if err != nil {
		t.Fatalf("NewWithClient error: %v", err)
	}
	return s
}

func TestNewWithClientNil(t *testing.T) {
	if _, err := NewWithClient(nil); err == nil {
		t.Fatalf("expected error when client is nil")
	}
}

func TestNewRequiresPoolOptions(t *testing.T) {
	if _, err := New(context.Background(), "redis://localhost:6379/0", nil); err == nil {
		t.Fatalf("expected error when pool options are nil")
	}
}

func TestGetBasketNotFound(t *testing.T) {
	client := newFakeRedisClient()
	s := newTestStore(t, client)

	b, err := s.GetBasket(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetBasket returned error: %v", err)
	}
	if b != nil {
		t.Fatalf("expected nil basket, got %+v", b)
	}
	if len(client.lastKeys) != 1 || client.lastKeys[0] != "/basket/u-1" {
		t.Fatalf("unexpected keys passed to Get: %v", client.lastKeys)
	}
}

func TestUpdateThenGetBasket(t *testing.T) {
	client := newFakeRedisClient()
	s := newTestStore(t, client)

	in := &Basket{BuyerID: "u-1", Items: []Item{{ProductID: 7, Quantity: 2}, {ProductID: 9, Quantity: 1}}}
	out, err := s.UpdateBasket(context.Background(), in)
	if err != nil {
		t.Fatalf("UpdateBasket returned error: %v", err)
	}
	if out == nil || out.BuyerID != "u-1" || len(out.Items) != 2 || out.Items[0].ProductID != 7 {
		t.Fatalf("unexpected stored basket: %+v", out)
	}
	if got := client.data["/basket/u-1"]; got != `{"buyerId":"u-1","items":[{"productId":7,"quantity":2},{"productId":9,"quantity":1}]}` {
		t.Fatalf("unexpected stored JSON: %s", got)
	}
}

func TestUpdateBasketValidation(t *testing.T) {
	s := newTestStore(t, newFakeRedisClient())

	if _, err := s.UpdateBasket(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil basket")
	}
	if _, err := s.UpdateBasket(context.Background(), &Basket{BuyerID: "  "}); err == nil {
		t.Fatalf("expected error for blank buyer id")
	}
	if _, err := s.GetBasket(context.Background(), ""); err == nil {
		t.Fatalf("expected error for blank user id")
	}
	if _, err := s.DeleteBasket(context.Background(), ""); err == nil {
		t.Fatalf("expected error for blank user id")
	}
}

func TestGetBasketDecodeError(t *testing.T) {
	client := newFakeRedisClient()
	client.data["/basket/u-1"] = "{not json"
	s := newTestStore(t, client)

	if _, err := s.GetBasket(context.Background(), "u-1"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRedisErrors(t *testing.T) {
	ctx := context.Background()

	client := newFakeRedisClient()
	client.getErr = errors.New("boom")
	if _, err := newTestStore(t, client).GetBasket(ctx, "u-1"); err == nil {
		t.Fatalf("expected error from GetBasket")
	}

	client = newFakeRedisClient()
	client.setErr = errors.New("boom")
	if _, err := newTestStore(t, client).UpdateBasket(ctx, &Basket{BuyerID: "u-1"}); err == nil {
		t.Fatalf("expected error from UpdateBasket")
	}

	client = newFakeRedisClient()
	client.delErr = errors.New("boom")
	if _, err := newTestStore(t, client).DeleteBasket(ctx, "u-1"); err == nil {
		t.Fatalf("expected error from DeleteBasket")
	}
}

func TestDeleteBasket(t *testing.T) {
	client := newFakeRedisClient()
	client.data["/basket/u-1"] = `{"buyerId":"u-1","items":[]}`
	s := newTestStore(t, client)

	deleted, err := s.DeleteBasket(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("DeleteBasket returned error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected deleted to be true")
	}

	deleted, err = s.DeleteBasket(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("DeleteBasket returned error: %v", err)
	}
	if deleted {
		t.Fatalf("expected deleted to be false for a missing basket")
	}
}

func TestPing(t *testing.T) {
	client := newFakeRedisClient()
	s := newTestStore(t, client)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	client.pingReturn = redis.NewStatusResult("", errors.New("down"))
	if err := s.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from Ping")
	}
}

func TestClose(t *testing.T) {
	s := newTestStore(t, newFakeRedisClient())
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestCloseError(t *testing.T) {
	client := newFakeRedisClient()
	client.closeErr = errors.New("close error")
	s := newTestStore(t, client)

	if err := s.Close(); err == nil {
		t.Fatalf("expected error from Close")
	}
}

func TestCloseNilStore(t *testing.T) {
	var s *Store
	if err := s.Close(); err == nil {
		t.Fatalf("expected error when store is nil")
	}
}

func TestCloseNilClient(t *testing.T) {
	s := &Store{client: nil}
	if err := s.Close(); err == nil {
		t.Fatalf("expected error when client is nil")
	}
}

func TestBasketKey(t *testing.T) {
	tests := []struct {
		userID   string
		expected string
	}{
		{"abc", "/basket/abc"},
		{"6f1c2d9e-7a41-4c55-9a0b-3e2f11d0c8aa", "/basket/6f1c2d9e-7a41-4c55-9a0b-3e2f11d0c8aa"},
		{"", "/basket/"},
	}

	for _, tt := range tests {
		result := basketKey(tt.userID)
		if result != tt.expected {
			t.Errorf("basketKey(%s): expected %s, got %s", tt.userID, tt.expected, result)
		}
	}
}
