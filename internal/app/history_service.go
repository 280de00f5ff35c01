package app

import (
	"context"

	"nutriscan/internal/domain"
)

const maxHistoryLimit = 100

// HistoryService exposes a user's persisted analyses.
type HistoryService struct {
	repo domain.AnalysisRepository
}

// NewHistoryService creates a HistoryService backed by the given repository.
func NewHistoryService(repo domain.AnalysisRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// ListRecent returns the user's most recent entries, newest first.
func (s *HistoryService) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items, err := s.repo.ListRecentEntries(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Entry{}
	}
	return items, nil
}
