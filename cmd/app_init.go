package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/floodsense/internal/resolver"
	"github.com/sells-group/floodsense/internal/workflow"
	"github.com/sells-group/floodsense/pkg/geocode"
	"github.com/sells-group/floodsense/pkg/predict"
)

// appEnv holds the clients shared by every workflow a command creates.
type appEnv struct {
	Predict  predict.Client
	Reverser geocode.Reverser
	cache    *geocode.Cache
}

// Close releases the place-name cache, if one was opened.
func (e *appEnv) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
}

// NewWorkflow returns a workflow bound to ctx with its own resolver. All
// workflows share the prediction client and the rate-limited reverser.
func (e *appEnv) NewWorkflow(ctx context.Context, opts ...workflow.Option) *workflow.Workflow {
	opts = append([]workflow.Option{workflow.WithContext(ctx)}, opts...)
	return workflow.New(e.Predict, resolver.New(e.Reverser), opts...)
}

// initApp validates config for command and builds the prediction client and
// reverse geocoder. offline forces the canned prediction client. Callers
// should defer env.Close().
func initApp(ctx context.Context, command string, offline bool) (*appEnv, error) {
	if offline {
		cfg.Predict.Mode = string(predict.ModeOffline)
	}
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	mode, err := predict.ParseMode(cfg.Predict.Mode)
	if err != nil {
		return nil, err
	}
	client, err := predict.New(predict.Config{
		Mode:    mode,
		BaseURL: cfg.Predict.BaseURL,
		Timeout: time.Duration(cfg.Predict.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init predict client")
	}

	env := &appEnv{Predict: client}

	env.Reverser = geocode.NewNominatim(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
	)

	if cfg.Geocode.CachePath != "" {
		cache, err := geocode.OpenCache(cfg.Geocode.CachePath, time.Duration(cfg.Geocode.CacheTTLHours)*time.Hour)
		if err != nil {
			return nil, err
		}
		if err := cache.Migrate(ctx); err != nil {
			_ = cache.Close()
			return nil, err
		}
		if n, err := cache.Purge(ctx); err != nil {
			zap.L().Warn("purge place-name cache", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("purged expired place names", zap.Int("removed", n))
		}
		env.cache = cache
		env.Reverser = geocode.NewCachingReverser(env.Reverser, cache)
	}

	zap.L().Debug("app initialized",
		zap.String("command", command),
		zap.String("predict_mode", string(mode)),
		zap.Bool("place_cache", env.cache != nil),
	)
	return env, nil
}
