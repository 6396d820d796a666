package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scool/pkg/logger"
)

// Report is the outcome of Run.
type Report struct {
	Stats    Stats
	Verified int
	// VerifyErr is set when the final standings break an invariant.
	VerifyErr error
}

// Run submits the generated load with bounded concurrency, then fetches the
// standings and verifies them. Individual request failures are counted, not
// returned; Run only fails when the server cannot be reached at all.
func Run(ctx context.Context, cfg Config, c *Client) (Report, error) {
	cfg.Normalize()
	log := logger.Get().Named("loadtest")

	if _, err := c.Health(ctx); err != nil {
		return Report{}, fmt.Errorf("health check: %w", err)
	}

	subs := Generate(cfg)
	log.Info(ctx, "submitting load",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("submissions", len(subs)),
		logger.Int("participants", cfg.Participants),
		logger.Int("concurrency", cfg.Concurrency),
	)

	var ok, limited, unavailable, failed atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, s := range subs {
		g.Go(func() error {
			_, err := c.Submit(gctx, s.Username, s.Name, s.Score)
			var se *StatusError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &se) && se.Code == http.StatusTooManyRequests:
				limited.Add(1)
			case errors.As(err, &se) && se.Code == http.StatusServiceUnavailable:
				unavailable.Add(1)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				failed.Add(1)
				log.Debug(gctx, "submission failed", logger.String("username", s.Username), logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()

	rep := Report{Stats: Stats{
		Submitted:   len(subs),
		Succeeded:   int(ok.Load()),
		RateLimited: int(limited.Load()),
		Unavailable: int(unavailable.Load()),
		Failed:      int(failed.Load()),
		Duration:    time.Since(start),
	}}
	if err != nil {
		return rep, err
	}

	entries, err := c.Standings(ctx, cfg.VerifyLimit)
	if err != nil {
		return rep, fmt.Errorf("fetch standings: %w", err)
	}
	rep.Verified = len(entries)
	rep.VerifyErr = errors.Join(Verify(entries), VerifyScores(entries, ByUsername(subs)))

	log.Info(ctx, "load finished",
		logger.Int("succeeded", rep.Stats.Succeeded),
		logger.Int("rateLimited", rep.Stats.RateLimited),
		logger.Int("unavailable", rep.Stats.Unavailable),
		logger.Int("failed", rep.Stats.Failed),
		logger.Duration("duration", rep.Stats.Duration),
		logger.Float64("perSecond", rep.Stats.PerSecond()),
		logger.Bool("verified", rep.VerifyErr == nil),
	)
	return rep, nil
}
