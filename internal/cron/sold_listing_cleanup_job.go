package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

const soldListingCleanupJobName = "sold-listing-cleanup"

type soldListingPurger interface {
	PurgeSoldBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type SoldListingCleanupParams struct {
	Logger    *logger.Logger
	Purger    soldListingPurger
	Retention time.Duration
	Now       func() time.Time
}

// soldListingCleanupJob removes listings sold more than Retention ago.
type soldListingCleanupJob struct {
	logg      *logger.Logger
	purger    soldListingPurger
	retention time.Duration
	now       func() time.Time
}

func NewSoldListingCleanupJob(params SoldListingCleanupParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Purger == nil {
		return nil, fmt.Errorf("purger required")
	}
	if params.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &soldListingCleanupJob{
		logg:      params.Logger,
		purger:    params.Purger,
		retention: params.Retention,
		now:       now,
	}, nil
}

func (j *soldListingCleanupJob) Name() string { return soldListingCleanupJobName }

func (j *soldListingCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	purged, err := j.purger.PurgeSoldBefore(ctx, cutoff)
	fields := map[string]any{
		"cutoff": cutoff.Format(time.RFC3339),
		"purged": purged,
	}
	if err != nil {
		j.logg.Error(j.logg.WithFields(ctx, fields), "sold listing cleanup incomplete", err)
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "sold listing cleanup finished")
	return nil
}
