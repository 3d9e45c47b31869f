package cron

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/deorejayesh9663/UniTrade/internal/admin"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

const platformStatsSnapshotJobName = "platform-stats-snapshot"

type statsSource interface {
	CurrentStats(ctx context.Context) (admin.PlatformStats, error)
}

type statsSink interface {
	InsertStats(ctx context.Context, rows any) error
}

type PlatformStatsSnapshotParams struct {
	Logger *logger.Logger
	Stats  statsSource
	Sink   statsSink
}

// platformStatsSnapshotJob appends the current dashboard figures to the
// analytics warehouse so revenue can be charted over time.
type platformStatsSnapshotJob struct {
	logg  *logger.Logger
	stats statsSource
	sink  statsSink
}

func NewPlatformStatsSnapshotJob(params PlatformStatsSnapshotParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats source required")
	}
	if params.Sink == nil {
		return nil, fmt.Errorf("stats sink required")
	}
	return &platformStatsSnapshotJob{logg: params.Logger, stats: params.Stats, sink: params.Sink}, nil
}

func (j *platformStatsSnapshotJob) Name() string { return platformStatsSnapshotJobName }

func (j *platformStatsSnapshotJob) Run(ctx context.Context) error {
	stats, err := j.stats.CurrentStats(ctx)
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}
	row := statsRow{stats: stats}
	if err := j.sink.InsertStats(ctx, []*statsRow{&row}); err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"total_listings": stats.TotalListings,
		"sold_items":     stats.SoldItems,
		"total_revenue":  stats.TotalRevenue.String(),
	}), "platform stats snapshot stored")
	return nil
}

// statsRow is one warehouse row. The computed timestamp doubles as the
// insert id so a retried cycle does not duplicate the snapshot.
type statsRow struct {
	stats admin.PlatformStats
}

func (r *statsRow) Save() (map[string]bigquery.Value, string, error) {
	s := r.stats
	return map[string]bigquery.Value{
		"computed_at":    s.ComputedAt.UTC(),
		"total_users":    s.TotalUsers,
		"total_listings": s.TotalListings,
		"sold_items":     s.SoldItems,
		"total_revenue":  s.TotalRevenue.Rat(),
		"platform_fee":   s.PlatformFee.Rat(),
	}, s.ComputedAt.UTC().Format(time.RFC3339Nano), nil
}
