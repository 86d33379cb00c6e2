package scan

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"redscout/internal/config"
)

// BuildPipeline constructs a pipeline for one account and shard. The
// runner hands it read-only settings; posting and LLM use stay off for
// scheduled runs no matter what the environment says.
type BuildPipeline func(ctx context.Context, account string, shard Shard) (*Pipeline, error)

// HumanizedRunner is the scheduled multi-account variant. Accounts run
// strictly one after another so browser-session and rate-limit state stay
// unambiguous, with a jittered pause between them, and only inside the
// configured activity window.
type HumanizedRunner struct {
	cfg   *config.Settings
	build BuildPipeline
	log   *zap.Logger
	sleep func(time.Duration)
	now   func() time.Time
	rng   *rand.Rand
}

func NewHumanizedRunner(cfg *config.Settings, build BuildPipeline, log *zap.Logger) *HumanizedRunner {
	return &HumanizedRunner{
		cfg:   cfg,
		build: build,
		log:   log,
		sleep: time.Sleep,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *HumanizedRunner) Run(ctx context.Context) error {
	if !r.inWindow(r.now()) {
		r.log.Info("outside activity window, nothing to do",
			zap.Int("window_from", r.cfg.Humanized.WindowFrom),
			zap.Int("window_to", r.cfg.Humanized.WindowTo))
		return nil
	}

	accounts := r.cfg.Humanized.Accounts
	if len(accounts) == 0 {
		accounts = []string{r.cfg.Credentials.Username}
	}

	for i, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}

		shard := ComputeShard(i, len(accounts))
		r.log.Info("humanized scan for account",
			zap.String("account", account),
			zap.String("sort", shard.Sort),
			zap.String("time_range", shard.TimeRange))

		pipe, err := r.build(ctx, account, shard)
		if err != nil {
			r.log.Warn("pipeline build failed, skipping account",
				zap.String("account", account), zap.Error(err))
			continue
		}

		sum, err := pipe.Run(ctx)
		r.log.Info("account scan finished",
			zap.String("account", account),
			zap.Int("fetched", sum.Fetched),
			zap.Int("matched", sum.Matched),
			zap.Int("records", sum.Records))
		if err != nil {
			return err
		}

		if i < len(accounts)-1 {
			r.sleep(r.pause())
		}
	}
	return nil
}

func (r *HumanizedRunner) pause() time.Duration {
	min, max := r.cfg.Humanized.MinPause, r.cfg.Humanized.MaxPause
	if max <= min {
		return min
	}
	return min + time.Duration(r.rng.Int63n(int64(max-min)))
}

// inWindow checks the hour of day against [from, to), handling windows
// that wrap past midnight.
func (r *HumanizedRunner) inWindow(t time.Time) bool {
	from, to := r.cfg.Humanized.WindowFrom, r.cfg.Humanized.WindowTo
	if from == to {
		return true
	}
	h := t.Hour()
	if from < to {
		return h >= from && h < to
	}
	return h >= from || h < to
}
