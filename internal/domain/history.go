package domain

import (
	"context"
	"time"
)

// RunStats summarizes one aggregate fetch.
type RunStats struct {
	ID            int64
	Date          string
	Total         int
	TheaterCount  int
	ArchiveCount  int
	ExcludedCount int
	FromCache     bool
	Duration      time.Duration
	RanAt         time.Time
}

// HistoryRepo persists run statistics.
type HistoryRepo interface {
	RecordRun(ctx context.Context, stats RunStats) error
	RecentRuns(ctx context.Context, limit int) ([]RunStats, error)
}

// NotificationService pushes run outcomes to external channels.
type NotificationService interface {
	SendSuccess(ctx context.Context, stats RunStats) error
	SendError(ctx context.Context, err error) error
}
