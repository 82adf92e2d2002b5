package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/pkg/logger"
)

type StatisticsRepository interface {
	Count(ctx context.Context, rng model.DateRange, needsHumanOnly bool) (int64, error)
	CountByState(ctx context.Context, rng model.DateRange) ([]model.StateCount, error)
	CountByChannel(ctx context.Context, rng model.DateRange) ([]model.ChannelCount, error)
	LastContactedSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

// SummaryCache stores computed summaries per date range. A miss is reported
// as (nil, nil).
type SummaryCache interface {
	Get(ctx context.Context, rng model.DateRange) (*model.Summary, error)
	Set(ctx context.Context, rng model.DateRange, summary *model.Summary) error
}

type StatisticsService struct {
	repo  StatisticsRepository
	cache SummaryCache
	now   func() time.Time
}

// NewStatisticsService builds the aggregator. cache may be nil.
func NewStatisticsService(repo StatisticsRepository, cache SummaryCache) *StatisticsService {
	return &StatisticsService{
		repo:  repo,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *StatisticsService) Summary(ctx context.Context, rng model.DateRange) (*model.Summary, error) {
	if rng.From != nil && rng.To != nil && rng.From.After(*rng.To) {
		return nil, invalid("from", "from must not be after to")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, rng)
		if err != nil {
			logger.Warn("[statistics-service] cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	summary, err := s.compute(ctx, rng)
	if err != nil {
		logger.Error("[statistics-service] storage failure", "op", "summary", "error", err)
		return nil, &StorageError{Op: "summary", Err: err}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rng, summary); err != nil {
			logger.Warn("[statistics-service] cache write failed", "error", err)
		}
	}
	return summary, nil
}

func (s *StatisticsService) compute(ctx context.Context, rng model.DateRange) (*model.Summary, error) {
	total, err := s.repo.Count(ctx, rng, false)
	if err != nil {
		return nil, err
	}
	needsHuman, err := s.repo.Count(ctx, rng, true)
	if err != nil {
		return nil, err
	}
	byState, err := s.repo.CountByState(ctx, rng)
	if err != nil {
		return nil, err
	}
	byChannel, err := s.repo.CountByChannel(ctx, rng)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(model.ActivityWindowDays - 1))
	contacted, err := s.repo.LastContactedSince(ctx, start)
	if err != nil {
		return nil, err
	}

	var sold int64
	for _, sc := range byState {
		if sc.State == model.StateSold {
			sold = sc.Count
		}
	}

	return &model.Summary{
		Total:           total,
		NeedsHumanCount: needsHuman,
		ConversionRate:  ConversionRate(sold, total),
		ByState:         byState,
		ByChannel:       byChannel,
		RecentActivity:  DailyActivity(contacted, start, model.ActivityWindowDays),
	}, nil
}

// ConversionRate formats sold/total as a percentage with two decimals.
func ConversionRate(sold, total int64) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(sold)/float64(total)*100)
}

// DailyActivity buckets timestamps into days UTC calendar days starting at
// start. Every day is present, days without activity count zero.
func DailyActivity(timestamps []time.Time, start time.Time, days int) []model.DayCount {
	start = start.UTC().Truncate(24 * time.Hour)
	out := make([]model.DayCount, days)
	index := make(map[string]int, days)
	for i := range out {
		d := start.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = model.DayCount{Date: d}
		index[d] = i
	}
	for _, ts := range timestamps {
		if i, ok := index[ts.UTC().Format(time.DateOnly)]; ok {
			out[i].Count++
		}
	}
	return out
}
