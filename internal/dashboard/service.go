package dashboard

import (
	"context"
	"time"
)

const (
	defaultFlakyLimit          = 10
	defaultMaxDurationSeconds  = 3600
	defaultDurationBucketCount = 12
	defaultWindow              = 7 * 24 * time.Hour
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// normalizeWindow fills missing bounds with [now-7d, now) and validates order.
func (s *Service) normalizeWindow(since, until *time.Time) (Window, error) {
	w := Window{Until: s.now().UTC()}
	if until != nil {
		w.Until = until.UTC()
	}
	w.Since = w.Until.Add(-defaultWindow)
	if since != nil {
		w.Since = since.UTC()
	}
	if !w.Since.Before(w.Until) {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

func (s *Service) FailuresOverTime(ctx context.Context, since, until *time.Time, bucket string) ([]FailureBucket, error) {
	w, err := s.normalizeWindow(since, until)
	if err != nil {
		return nil, err
	}
	if bucket == "" {
		bucket = "day"
	}
	return s.repo.FailuresOverTime(ctx, w, bucket)
}

func (s *Service) LatestStatusByPipeline(ctx context.Context) ([]PipelineStatus, error) {
	return s.repo.LatestStatusByPipeline(ctx)
}

func (s *Service) FailureCountsByClient(ctx context.Context) ([]ClientFailureCounts, error) {
	return s.repo.FailureCountsByClient(ctx, s.now().UTC())
}

func (s *Service) TopFlakyPipelines(ctx context.Context, since *time.Time, limit int) ([]FlakyPipeline, error) {
	from := s.now().UTC().Add(-defaultWindow)
	if since != nil {
		from = since.UTC()
	}
	if limit <= 0 {
		limit = defaultFlakyLimit
	}
	return s.repo.TopFlakyPipelines(ctx, from, limit)
}

func (s *Service) FailureRateByPlatform(ctx context.Context, since, until *time.Time) ([]PlatformFailureRate, error) {
	w, err := s.normalizeWindow(since, until)
	if err != nil {
		return nil, err
	}
	return s.repo.FailureRateByPlatform(ctx, w)
}

func (s *Service) RunDurationDistribution(ctx context.Context, since, until *time.Time, maxDurationSeconds, bucketCount int) ([]DurationBucket, error) {
	w, err := s.normalizeWindow(since, until)
	if err != nil {
		return nil, err
	}
	if maxDurationSeconds <= 0 {
		maxDurationSeconds = defaultMaxDurationSeconds
	}
	if bucketCount <= 0 {
		bucketCount = defaultDurationBucketCount
	}
	return s.repo.RunDurationDistribution(ctx, w, maxDurationSeconds, bucketCount)
}
