package domain

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyCompletion is returned by a Completer when the upstream reply has
// no message content.
var ErrEmptyCompletion = errors.New("completion has no message content")

// Entry is a persisted analysis. Entries are append-only.
type Entry struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	FoodName  string          `json:"foodName"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Analysis  NutritionRecord `json:"analysis"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AnalysisRepository is the port for the per-user analysis history.
type AnalysisRepository interface {
	AddEntry(ctx context.Context, e Entry) error
	ListRecentEntries(ctx context.Context, userID int64, limit int) ([]Entry, error)
	ListEntriesSince(ctx context.Context, userID int64, since time.Time) ([]Entry, error)
}

// ImageStore is the port for uploaded image blobs. PutImage returns a
// publicly retrievable URL for the stored object.
type ImageStore interface {
	PutImage(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// HandoffStore holds the most recent analysis per requester so a later
// request can read it back. Load returns nil, nil when nothing is stored.
type HandoffStore interface {
	SaveLatest(ctx context.Context, key string, rec NutritionRecord) error
	LoadLatest(ctx context.Context, key string) (*NutritionRecord, error)
}

// CompletionRequest is a single-message prompt for the text-generation
// service. ImageDataURL, when set, is sent as an image part after Prompt.
type CompletionRequest struct {
	Prompt       string
	ImageDataURL string
}

// Completer is the port for the external text-generation service. It
// returns the content of the first choice.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
