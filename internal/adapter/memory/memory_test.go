package memory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nutriscan/internal/domain"
)

func TestAnalysisRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	userID := int64(1)

	now := time.Now()
	for i, name := range []string{"Apple", "Egg", "Rice"} {
		err := db.AddEntry(ctx, domain.Entry{
			ID:        name,
			UserID:    userID,
			FoodName:  name,
			Analysis:  domain.DefaultRecord(name),
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
	}

	if err := db.AddEntry(ctx, domain.Entry{ID: "Apple", UserID: userID}); err == nil {
		t.Error("expected duplicate id to be rejected")
	}

	// List newest first
	entries, err := db.ListRecentEntries(ctx, userID, 2)
	if err != nil {
		t.Fatalf("ListRecentEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].FoodName != "Rice" || entries[1].FoodName != "Egg" {
		t.Errorf("unexpected order: %s, %s", entries[0].FoodName, entries[1].FoodName)
	}

	// Other user sees nothing
	entries2, _ := db.ListRecentEntries(ctx, 999, 10)
	if len(entries2) != 0 {
		t.Error("expected 0 entries for other user")
	}

	// Since is inclusive and oldest first
	since, err := db.ListEntriesSince(ctx, userID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ListEntriesSince: %v", err)
	}
	if len(since) != 2 || since[0].FoodName != "Egg" {
		t.Errorf("unexpected entries since: %+v", since)
	}
}

func TestUserRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, err := db.Create(ctx, "bob", "Bob", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "bob" || u.DisplayName != "Bob" {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := db.Create(ctx, "bob", "Bob", ""); err == nil {
		t.Error("expected duplicate username to be rejected")
	}

	u2, err := db.GetByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u2 == nil || u2.ID != u.ID {
		t.Error("failed to retrieve user")
	}

	if err := db.UpdateDisplayName(ctx, u.ID, "Robert"); err != nil {
		t.Fatalf("UpdateDisplayName: %v", err)
	}
	if err := db.UpdatePasswordHash(ctx, u.ID, "newhash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	u3, _ := db.GetByID(ctx, u.ID)
	if u3.DisplayName != "Robert" || u3.PasswordHash != "newhash" {
		t.Errorf("updates not applied: %+v", u3)
	}

	if missing, _ := db.GetByID(ctx, 42); missing != nil {
		t.Error("expected nil for unknown id")
	}

	count, _ := db.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}

func TestSessionRepository(t *testing.T) {
	db := New()
	repo := db.NewSessionRepo()
	ctx := context.Background()

	err := repo.Create(ctx, 1, "token123", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = repo.Create(ctx, 1, "stale", time.Now().Add(-time.Hour))

	sess, err := repo.GetByToken(ctx, "token123")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if sess == nil {
		t.Error("expected session, got nil")
	}

	_ = repo.DeleteExpired(ctx)
	if s, _ := repo.GetByToken(ctx, "stale"); s != nil {
		t.Error("expected expired session to be swept")
	}

	_ = repo.Delete(ctx, "token123")
	sess, _ = repo.GetByToken(ctx, "token123")
	if sess != nil {
		t.Error("expected nil (deleted)")
	}
}

func TestHandoff(t *testing.T) {
	ctx := context.Background()
	h := NewHandoff(time.Hour)
	now := time.Now()
	h.now = func() time.Time { return now }

	if rec, _ := h.LoadLatest(ctx, "client:a"); rec != nil {
		t.Error("expected empty slot")
	}

	_ = h.SaveLatest(ctx, "client:a", domain.DefaultRecord("Apple"))
	_ = h.SaveLatest(ctx, "client:a", domain.DefaultRecord("Pear"))

	rec, err := h.LoadLatest(ctx, "client:a")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if rec == nil || rec.FoodName != "Pear" {
		t.Errorf("expected latest record Pear, got %+v", rec)
	}

	// Reads do not consume the slot.
	if rec, _ := h.LoadLatest(ctx, "client:a"); rec == nil {
		t.Error("slot should survive a read")
	}

	now = now.Add(2 * time.Hour)
	if rec, _ := h.LoadLatest(ctx, "client:a"); rec != nil {
		t.Error("expected slot to expire")
	}
}

func TestHandoff_SaveDropsExpiredSlots(t *testing.T) {
	ctx := context.Background()
	h := NewHandoff(time.Hour)
	now := time.Now()
	h.now = func() time.Time { return now }

	_ = h.SaveLatest(ctx, "client:gone", domain.DefaultRecord("Apple"))
	now = now.Add(30 * time.Minute)
	_ = h.SaveLatest(ctx, "client:recent", domain.DefaultRecord("Pear"))

	now = now.Add(45 * time.Minute)
	_ = h.SaveLatest(ctx, "client:new", domain.DefaultRecord("Kiwi"))

	h.mu.Lock()
	_, gone := h.slots["client:gone"]
	_, recent := h.slots["client:recent"]
	n := len(h.slots)
	h.mu.Unlock()

	if gone {
		t.Error("expected the expired slot to be dropped without a read")
	}
	if !recent || n != 2 {
		t.Errorf("expected live slots to survive, got %d slots", n)
	}
}

func TestImageStore(t *testing.T) {
	s := NewImageStore("/images/")

	url, err := s.PutImage(context.Background(), "food-images/1/1-a.png", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if url != "/images/food-images/1/1-a.png" {
		t.Errorf("unexpected url %q", url)
	}

	srv := httptest.NewServer(http.StripPrefix("/images", s))
	defer srv.Close()

	resp, err := http.Get(srv.URL + url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "png-bytes" {
		t.Errorf("unexpected response %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}

	resp2, err := http.Get(srv.URL + "/images/missing.png")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp2.StatusCode)
	}
}

func TestImageStore_EscapesKey(t *testing.T) {
	s := NewImageStore("/images")
	key := "food-images/1/1-my lunch #2?.png"

	url, err := s.PutImage(context.Background(), key, "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if url != "/images/food-images/1/1-my%20lunch%20%232%3F.png" {
		t.Errorf("unexpected url %q", url)
	}

	srv := httptest.NewServer(http.StripPrefix("/images", s))
	defer srv.Close()

	resp, err := http.Get(srv.URL + url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "png-bytes" {
		t.Errorf("unexpected response %d %q", resp.StatusCode, body)
	}
}
