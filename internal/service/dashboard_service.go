package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/realty-crm/internal/config"
	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/events"
	"github.com/spec-kit/realty-crm/internal/funnel"
	"github.com/spec-kit/realty-crm/internal/hierarchy"
	"github.com/spec-kit/realty-crm/internal/repository"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

const statsVersionKey = "dashboard:stats:version"

// DashboardStats summarizes the viewer's slice of the pipeline.
type DashboardStats struct {
	TotalClients        int                        `json:"total_clients"`
	StageCounts         map[domain.FunnelStage]int `json:"stage_counts"`
	ContractsClosedYear int                        `json:"contracts_closed_year"`
	Year                int                        `json:"year"`
	InactivePreview     []domain.Client            `json:"inactive_preview"`
}

// DashboardService computes per-viewer pipeline statistics, cached in Redis.
// Cache keys embed a version counter that client mutations bump, so stale
// entries die without key scans.
type DashboardService struct {
	clients repository.ClientRepository
	users   repository.UserRepository
	cache   *redis.Client
	logger  *zap.Logger
	cfg     config.DashboardConfig
}

// NewDashboardService constructs the service. cache may be nil, in which case
// every call computes fresh.
func NewDashboardService(clients repository.ClientRepository, users repository.UserRepository, cache *redis.Client, logger *zap.Logger, cfg config.DashboardConfig) *DashboardService {
	return &DashboardService{
		clients: clients,
		users:   users,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
	}
}

// Stats computes or fetches the dashboard summary for the viewer.
func (s *DashboardService) Stats(ctx context.Context, viewer *domain.User, now time.Time) (*DashboardStats, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	key := s.cacheKey(ctx, viewer.ID)
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	clients, err := s.clients.List(ctx, repository.ClientFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	visible := hierarchy.VisibleClients(viewer, users, clients)
	stats := &DashboardStats{
		TotalClients:        len(visible),
		StageCounts:         funnel.StageCounts(visible),
		ContractsClosedYear: funnel.ContractsClosedInYear(visible, now.Year()),
		Year:                now.Year(),
		InactivePreview:     funnel.InactivePreview(visible, now, s.cfg.InactiveThreshold(), s.cfg.InactivePreviewLimit),
	}

	s.toCache(ctx, key, stats)
	return stats, nil
}

// RegisterInvalidation bumps the cache version whenever client data changes.
func (s *DashboardService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		s.bumpVersion(ctx)
		return nil
	}
	dispatcher.Subscribe(events.EventClientCreated, invalidate)
	dispatcher.Subscribe(events.EventClientStageChanged, invalidate)
	dispatcher.Subscribe(events.EventClientReassigned, invalidate)
	dispatcher.Subscribe(events.EventClientNoteAdded, invalidate)
}

func (s *DashboardService) cacheKey(ctx context.Context, viewerID string) string {
	version := int64(0)
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, statsVersionKey).Int64(); err == nil {
			version = v
		}
	}
	return fmt.Sprintf("dashboard:stats:%d:%s", version, viewerID)
}

func (s *DashboardService) fromCache(ctx context.Context, key string) *DashboardStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("discarding bad dashboard cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &stats
}

func (s *DashboardService) toCache(ctx context.Context, key string, stats *DashboardStats) {
	if s.cache == nil {
		return
	}
	ttl := s.cfg.StatsCacheTTL()
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.logger.Warn("unable to cache dashboard stats", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) bumpVersion(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, statsVersionKey).Err(); err != nil {
		s.logger.Warn("unable to bump dashboard cache version", zap.Error(err))
	}
}
