package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"nutriscan/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrFoodNameRequired indicates an empty food name in a by-name analysis.
	ErrFoodNameRequired = errors.New("food name is required")
	// ErrImageRequired indicates a by-image analysis without an image.
	ErrImageRequired = errors.New("image is required")
	// ErrUnsupportedImage indicates an image type other than jpeg, png or webp.
	ErrUnsupportedImage = errors.New("image must be jpeg, png or webp")
	// ErrAnalysisInProgress indicates the requester already has an analysis in flight.
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	// ErrAnalysisFailed covers upstream and persistence failures alike.
	ErrAnalysisFailed = errors.New("analysis failed")
)

const (
	textPromptFormat = "Analyze this food: %s. Return in JSON format with the following fields: " +
		"food_name, protein_content, fat_content, carbohydrate_content, vitamins (array), " +
		"minerals (array), health_benefits (array), common_uses (array)."

	imagePrompt = "Identify and analyze this food image. Return in JSON format with the following fields: " +
		"food_name, protein_content, fat_content, carbohydrate_content, vitamins (array), " +
		"minerals (array), health_benefits (array), common_uses (array)."

	defaultImageFoodName = "Food"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Requester identifies who an analysis is for. UserID is zero for anonymous
// requests. Key scopes the handoff slot and the in-flight gate.
type Requester struct {
	UserID int64
	Key    string
}

// Authenticated reports whether the requester is a signed-in user.
func (r Requester) Authenticated() bool {
	return r.UserID != 0
}

// Image is an uploaded food photo.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AnalysisResult is what a completed analysis returns to the caller.
type AnalysisResult struct {
	Record   domain.NutritionRecord `json:"analysis"`
	Summary  domain.Macros          `json:"summary"`
	Fallback bool                   `json:"fallback"`
	EntryID  string                 `json:"entryId,omitempty"`
	ImageURL string                 `json:"imageUrl,omitempty"`
}

// AnalysisService runs the by-name and by-image analysis flows.
type AnalysisService struct {
	completer domain.Completer
	entries   domain.AnalysisRepository
	images    domain.ImageStore
	handoff   domain.HandoffStore
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewAnalysisService creates an AnalysisService wired to its collaborators.
func NewAnalysisService(c domain.Completer, entries domain.AnalysisRepository, images domain.ImageStore, handoff domain.HandoffStore) *AnalysisService {
	return &AnalysisService{
		completer: c,
		entries:   entries,
		images:    images,
		handoff:   handoff,
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
}

// AnalyzeByName analyzes a typed food name. The result is persisted for
// signed-in requesters and always written to the requester's handoff slot.
func (s *AnalysisService) AnalyzeByName(ctx context.Context, req Requester, name string) (*AnalysisResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrFoodNameRequired
	}
	if !s.acquire(req.Key) {
		return nil, ErrAnalysisInProgress
	}
	defer s.release(req.Key)

	content, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Prompt: fmt.Sprintf(textPromptFormat, name),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	result := s.normalize(content, name)

	// The handoff slot is written first so the results page has the record
	// even when saving the entry fails.
	if req.Key != "" {
		if err := s.handoff.SaveLatest(ctx, req.Key, result.Record); err != nil {
			log.Printf("analysis: handoff save for %s: %v", req.Key, err)
		}
	}

	if req.Authenticated() {
		id, err := s.persist(ctx, req.UserID, name, "", result.Record)
		if err != nil {
			return nil, err
		}
		result.EntryID = id
	}
	return result, nil
}

// AnalyzeByImage analyzes an uploaded photo. For signed-in requesters the
// image is uploaded to the object store before the entry is persisted.
func (s *AnalysisService) AnalyzeByImage(ctx context.Context, req Requester, img Image) (*AnalysisResult, error) {
	if len(img.Data) == 0 {
		return nil, ErrImageRequired
	}
	contentType := imageContentType(img)
	if !allowedImageTypes[contentType] {
		return nil, ErrUnsupportedImage
	}
	if !s.acquire(req.Key) {
		return nil, ErrAnalysisInProgress
	}
	defer s.release(req.Key)

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	content, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:       imagePrompt,
		ImageDataURL: dataURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	result := s.normalize(content, filenameStem(img.Filename))

	if req.Authenticated() {
		name := safeFilename(img.Filename)
		if name == "" {
			name = "upload"
		}
		key := fmt.Sprintf("food-images/%d/%d-%s", req.UserID, s.now().UnixMilli(), name)
		url, err := s.images.PutImage(ctx, key, contentType, img.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: upload image: %w", ErrAnalysisFailed, err)
		}
		result.ImageURL = url

		id, err := s.persist(ctx, req.UserID, result.Record.FoodName, url, result.Record)
		if err != nil {
			return nil, err
		}
		result.EntryID = id
	}
	return result, nil
}

func (s *AnalysisService) normalize(content, fallbackName string) *AnalysisResult {
	n := domain.Normalize(content, fallbackName)
	if n.FellBack() {
		log.Printf("analysis: reply for %q had no parseable JSON object, using defaults", fallbackName)
	}
	return &AnalysisResult{
		Record:   n.Record,
		Summary:  domain.Summarize(n.Record),
		Fallback: n.FellBack(),
	}
}

func (s *AnalysisService) persist(ctx context.Context, userID int64, foodName, imageURL string, rec domain.NutritionRecord) (string, error) {
	e := domain.Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		FoodName:  foodName,
		ImageURL:  imageURL,
		Analysis:  rec,
		CreatedAt: s.now().UTC(),
	}
	if err := s.entries.AddEntry(ctx, e); err != nil {
		return "", fmt.Errorf("%w: save entry: %w", ErrAnalysisFailed, err)
	}
	return e.ID, nil
}

// acquire takes the in-flight slot for key. An empty key is never gated.
func (s *AnalysisService) acquire(key string) bool {
	if key == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *AnalysisService) release(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

func imageContentType(img Image) string {
	ct := strings.ToLower(strings.TrimSpace(img.ContentType))
	if i := strings.Index(ct, ";"); i != -1 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	if allowedImageTypes[ct] {
		return ct
	}
	sniffed := http.DetectContentType(img.Data)
	if i := strings.Index(sniffed, ";"); i != -1 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// filenameStem returns the part of the base name before the first dot.
func filenameStem(name string) string {
	base := safeFilename(name)
	if i := strings.Index(base, "."); i != -1 {
		base = base[:i]
	}
	if base == "" {
		return defaultImageFoodName
	}
	return base
}

func safeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return base
}
