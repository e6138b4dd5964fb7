package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/labstack/gommon/log"
	"smallcrm/cmd/internal/cache"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

const statsCacheKey = "appointments:stats"

type DayStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

type PeriodStats struct {
	Total int64 `json:"total"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type AppointmentStatsResponse struct {
	Today      DayStats      `json:"today"`
	ThisWeek   PeriodStats   `json:"this_week"`
	ThisMonth  PeriodStats   `json:"this_month"`
	ByStatus   []StatusCount `json:"by_status"`
	NoShowRate float64       `json:"no_show_rate"`
}

// GetStats summarizes the appointment book for the dashboard. Results are
// served from the cache while fresh; writes through this service evict them.
func (a *DefaultAppointmentService) GetStats(ctx context.Context) (*AppointmentStatsResponse, apierror.ErrorResponse) {
	var cached AppointmentStatsResponse
	err := a.Cache.Get(ctx, statsCacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warnf("failed to read cached appointment stats: %v", err)
	}

	stats, err := a.computeStats(ctx)
	if err != nil {
		log.Errorf("failed to compute appointment stats: %v", err)
		return nil, apierror.InternalServerError
	}

	if err := a.Cache.Set(ctx, statsCacheKey, stats, a.StatsTTL); err != nil {
		log.Warnf("failed to cache appointment stats: %v", err)
	}
	return stats, nil
}

func (a *DefaultAppointmentService) computeStats(ctx context.Context) (*AppointmentStatsResponse, error) {
	now := a.Now()
	loc := a.Scheduler.Location()
	today := utils.StartOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
	nextMonth := monthStart.AddDate(0, 1, 0)

	stats := &AppointmentStatsResponse{ByStatus: []StatusCount{}}
	var err error

	from, to := today.UnixMilli(), tomorrow.UnixMilli()
	if stats.Today.Total, err = a.AppointmentRepo.CountStarting(ctx, from, to); err != nil {
		return nil, err
	}
	if stats.Today.Completed, err = a.AppointmentRepo.CountStarting(ctx, from, to, entity.StatusCompleted); err != nil {
		return nil, err
	}
	if stats.Today.Cancelled, err = a.AppointmentRepo.CountStarting(ctx, from, to, entity.StatusCancelled); err != nil {
		return nil, err
	}
	if stats.ThisWeek.Total, err = a.AppointmentRepo.CountStarting(ctx, weekStart.UnixMilli(), to); err != nil {
		return nil, err
	}
	if stats.ThisMonth.Total, err = a.AppointmentRepo.CountStarting(ctx, monthStart.UnixMilli(), nextMonth.UnixMilli()); err != nil {
		return nil, err
	}

	byStatus, err := a.AppointmentRepo.CountByStatus(ctx, monthStart.UnixMilli(), nextMonth.UnixMilli())
	if err != nil {
		return nil, err
	}
	for status, count := range byStatus {
		stats.ByStatus = append(stats.ByStatus, StatusCount{Status: string(status), Count: count})
	}
	sort.Slice(stats.ByStatus, func(i, j int) bool {
		return stats.ByStatus[i].Status < stats.ByStatus[j].Status
	})

	past, err := a.AppointmentRepo.CountEndedBefore(ctx, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	if past > 0 {
		noShows, err := a.AppointmentRepo.CountEndedBefore(ctx, now.UnixMilli(), entity.StatusNoShow)
		if err != nil {
			return nil, err
		}
		stats.NoShowRate = math.Round(float64(noShows)/float64(past)*10000) / 100
	}
	return stats, nil
}

func (a *DefaultAppointmentService) invalidateStats(ctx context.Context) {
	evictAppointmentStats(ctx, a.Cache)
}

// evictAppointmentStats drops the cached dashboard after any write that
// changes appointment counts.
func evictAppointmentStats(ctx context.Context, c cache.Cache) {
	if err := c.Delete(ctx, statsCacheKey); err != nil {
		log.Warnf("failed to evict cached appointment stats: %v", err)
	}
}
