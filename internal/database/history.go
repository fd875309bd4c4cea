package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kwanpak/cinegrid/internal/domain"
)

// HistoryRepo implements domain.HistoryRepo on the sqlite handle.
type HistoryRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewHistoryRepo(log zerolog.Logger, db *DB) domain.HistoryRepo {
	return &HistoryRepo{
		log: log.With().Str("repo", "history").Logger(),
		db:  db,
	}
}

func (r *HistoryRepo) RecordRun(ctx context.Context, stats domain.RunStats) error {
	ranAt := stats.RanAt
	if ranAt.IsZero() {
		ranAt = time.Now()
	}

	queryBuilder := r.db.squirrel.
		Insert("run_history").
		Columns("date", "total", "theater_count", "archive_count", "excluded_count", "from_cache", "duration_ms", "ran_at").
		Values(stats.Date, stats.Total, stats.TheaterCount, stats.ArchiveCount, stats.ExcludedCount, stats.FromCache, stats.Duration.Milliseconds(), ranAt.Format(time.RFC3339))

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("RecordRun")

	if _, err := r.db.handler.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "error executing query")
	}

	return nil
}

func (r *HistoryRepo) RecentRuns(ctx context.Context, limit int) ([]domain.RunStats, error) {
	if limit <= 0 {
		limit = 20
	}

	queryBuilder := r.db.squirrel.
		Select("id", "date", "total", "theater_count", "archive_count", "excluded_count", "from_cache", "duration_ms", "ran_at").
		From("run_history").
		OrderBy("ran_at DESC").
		Limit(uint64(limit))

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	runs := []domain.RunStats{}
	for rows.Next() {
		var (
			stats      domain.RunStats
			durationMs int64
			ranAt      string
		)
		if err := rows.Scan(&stats.ID, &stats.Date, &stats.Total, &stats.TheaterCount, &stats.ArchiveCount, &stats.ExcludedCount, &stats.FromCache, &durationMs, &ranAt); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		stats.Duration = time.Duration(durationMs) * time.Millisecond
		if t, err := time.Parse(time.RFC3339, ranAt); err == nil {
			stats.RanAt = t
		}
		runs = append(runs, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return runs, nil
}
