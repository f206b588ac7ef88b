package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/opencampus/sis-api/internal/models"
	appErrors "github.com/opencampus/sis-api/pkg/errors"
)

type sectionLister interface {
	ListAvailable(ctx context.Context, semester string, year int, studentID string) ([]models.SectionListing, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// CatalogConfig tunes the catalog reader.
type CatalogConfig struct {
	Semester     string
	Year         int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CatalogService answers "what sections exist, with live counts and this
// student's relationship to each". Strictly read-only; the registration
// service invalidates its cache after mutations.
type CatalogService struct {
	sections sectionLister
	cache    catalogCache
	metrics  cacheRecorder
	config   CatalogConfig
	logger   *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(sections sectionLister, cache catalogCache, metrics cacheRecorder, config CatalogConfig, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{sections: sections, cache: cache, metrics: metrics, config: config, logger: logger}
}

// ListAvailableSections returns the active term's non-cancelled sections with
// derived seat availability. A malformed schedule on one row degrades that
// row only; the listing still succeeds.
func (s *CatalogService) ListAvailableSections(ctx context.Context, studentID string) ([]models.SectionListing, error) {
	key := s.cacheKey(studentID)
	if s.config.CacheEnabled && s.cache != nil {
		var cached []models.SectionListing
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	listings, err := s.sections.ListAvailable(ctx, s.config.Semester, s.config.Year, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}

	for i := range listings {
		row := &listings[i]
		row.AvailableSeats = row.MaxCapacity - row.EnrolledCount
		if row.AvailableSeats < 0 {
			row.AvailableSeats = 0
		}
		schedule, parseErr := models.ParseSchedule(row.ScheduleRaw)
		if parseErr != nil {
			row.ScheduleError = "malformed schedule"
			s.logger.Warn("section schedule unparseable",
				zap.String("section_id", row.SectionID),
				zap.Error(parseErr),
			)
		} else {
			row.Schedule = schedule
		}
		row.ScheduleRaw = nil
		if row.PrereqID != nil {
			row.Prerequisite = &models.CourseRef{ID: *row.PrereqID}
			if row.PrereqName != nil {
				row.Prerequisite.Name = *row.PrereqName
			}
		}
	}

	if s.config.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, listings, s.config.CacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return listings, nil
}

// Invalidate clears every cached catalog listing. Called after any
// registration mutation so seat counts never go stale past a write.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if !s.config.CacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:sections:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func (s *CatalogService) cacheKey(studentID string) string {
	if studentID == "" {
		studentID = "anon"
	}
	return "catalog:sections:" + studentID
}
