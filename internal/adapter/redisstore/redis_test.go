package redisstore

import (
	"context"
	"testing"
	"time"

	"nutriscan/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHandoff(t *testing.T, ttl time.Duration) (*Handoff, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestHandoff_SaveAndLoad(t *testing.T) {
	h, mr := newTestHandoff(t, time.Hour)
	ctx := context.Background()

	rec, err := h.LoadLatest(ctx, "client:a")
	if err != nil || rec != nil {
		t.Fatalf("expected empty slot, got %v, %v", rec, err)
	}

	apple := domain.DefaultRecord("Apple")
	apple.ProteinContent = "0.3g"
	if err := h.SaveLatest(ctx, "client:a", apple); err != nil {
		t.Fatalf("SaveLatest: %v", err)
	}

	if !mr.Exists("analysis:client:a") {
		t.Error("expected prefixed key in redis")
	}
	if ttl := mr.TTL("analysis:client:a"); ttl != time.Hour {
		t.Errorf("expected 1h ttl, got %v", ttl)
	}

	rec, err = h.LoadLatest(ctx, "client:a")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if rec == nil || rec.FoodName != "Apple" || rec.ProteinContent != "0.3g" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Vitamins == nil {
		t.Error("expected empty vitamins slice to survive the round trip")
	}
}

func TestHandoff_Expiry(t *testing.T) {
	h, mr := newTestHandoff(t, time.Minute)
	ctx := context.Background()

	_ = h.SaveLatest(ctx, "user:1", domain.DefaultRecord("Egg"))
	mr.FastForward(2 * time.Minute)

	rec, err := h.LoadLatest(ctx, "user:1")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if rec != nil {
		t.Error("expected slot to expire")
	}
}

func TestHandoff_CorruptValue(t *testing.T) {
	h, mr := newTestHandoff(t, 0)

	_ = mr.Set("analysis:user:1", "not json")
	if _, err := h.LoadLatest(context.Background(), "user:1"); err == nil {
		t.Error("expected decode error")
	}
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Open(context.Background(), Options{Addr: addr}); err == nil {
		t.Error("expected ping failure")
	}
}
