package app

import (
	"context"
	"errors"
	"math"
	"time"

	"nutriscan/internal/domain"
)

// ErrNoAnalysis indicates that the requester has no latest analysis.
var ErrNoAnalysis = errors.New("no analysis found")

// DashboardService encapsulates chart data retrieval use cases.
type DashboardService struct {
	handoff domain.HandoffStore
	entries domain.AnalysisRepository
	now     func() time.Time
}

// NewDashboardService creates a DashboardService backed by the given stores.
func NewDashboardService(h domain.HandoffStore, e domain.AnalysisRepository) *DashboardService {
	return &DashboardService{handoff: h, entries: e, now: time.Now}
}

// ChartPoint is a single named bar in the macro chart.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// LatestAnalysis is the most recent handoff record with its chart data.
type LatestAnalysis struct {
	Analysis domain.NutritionRecord `json:"analysis"`
	Summary  domain.Macros          `json:"summary"`
	Chart    []ChartPoint           `json:"chart"`
}

// DayPoint holds the summed macros of one local calendar day.
type DayPoint struct {
	Day      string  `json:"day"`
	Entries  int     `json:"entries"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Latest returns the record stored in the requester's handoff slot.
func (s *DashboardService) Latest(ctx context.Context, key string) (*LatestAnalysis, error) {
	if key == "" {
		return nil, ErrNoAnalysis
	}
	rec, err := s.handoff.LoadLatest(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoAnalysis
	}
	m := domain.Summarize(*rec)
	return &LatestAnalysis{
		Analysis: *rec,
		Summary:  m,
		Chart: []ChartPoint{
			{Name: "Protein", Value: m.Protein},
			{Name: "Fat", Value: m.Fat},
			{Name: "Carbs", Value: m.Carbs},
		},
	}, nil
}

// Daily returns per-day macro totals for the last days days, oldest first.
func (s *DashboardService) Daily(ctx context.Context, userID int64, days int) ([]DayPoint, error) {
	if days <= 0 {
		days = 7
	}
	if days > 366 {
		days = 366
	}

	today := s.now().In(time.Local)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, -(days - 1))

	entries, err := s.entries.ListEntriesSince(ctx, userID, start)
	if err != nil {
		return nil, err
	}

	points := make([]DayPoint, 0, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		index[day] = i
		points = append(points, DayPoint{Day: day})
	}

	for _, e := range entries {
		i, ok := index[e.CreatedAt.In(time.Local).Format("2006-01-02")]
		if !ok {
			continue
		}
		m := domain.Summarize(e.Analysis)
		p := &points[i]
		p.Entries++
		p.Calories += m.Calories
		p.Protein += m.Protein
		p.Carbs += m.Carbs
		p.Fat += m.Fat
	}
	for i := range points {
		p := &points[i]
		p.Calories, p.Protein = clampTotal(p.Calories), clampTotal(p.Protein)
		p.Carbs, p.Fat = clampTotal(p.Carbs), clampTotal(p.Fat)
	}
	return points, nil
}

// clampTotal keeps a summed total encodable as JSON.
func clampTotal(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
