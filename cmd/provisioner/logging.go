package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yaegashi/resourceprovisioner/config/provisionercfg"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
)

// withCmdRunLogger implements the span pattern for CLI command logging.
//
//	ctx, cleanup := withCmdRunLogger(ctx, "resource.run", acronym)
//	defer func() { cleanup(err) }()
//
// Log message format:
//   - Start:   CMD:<operation>/S
//   - Success: CMD:<operation>/EOK
//   - Failure: CMD:<operation>/EFAIL (err truncated to 32 characters)
//
// All lines are INFO.
func withCmdRunLogger(ctx context.Context, operation, resourceID string) (context.Context, func(err error)) {
	startAt := time.Now()
	logger := logging.FromContext(ctx).With("resourceId", resourceID)
	ctx = logging.WithLogger(ctx, logger)
	logger.Info(ctx, "CMD:"+operation+"/S")

	return ctx, func(err error) {
		elapsed := time.Since(startAt).Seconds()
		if err == nil {
			logger.Info(ctx, "CMD:"+operation+"/EOK", "err", "", "elapsed", elapsed)
			return
		}
		logger.Info(ctx, "CMD:"+operation+"/EFAIL", "err", logging.TruncateErr(err), "elapsed", elapsed)
	}
}

// logConfig merges the logging section of the config file (when readable)
// with flags and environment. Environment overrides flags, flags override
// the file.
func logConfig(cmd *cobra.Command) *logging.LogConfig {
	lc := &logging.LogConfig{}
	if path := flagString(cmd, "config"); path != "" {
		if cfg, err := provisionercfg.Load(path); err == nil {
			lc.Format = cfg.Logging.Format
			lc.Level = cfg.Logging.Level
			lc.Output = cfg.Logging.Output
			lc.Dir = cfg.Logging.Dir
			lc.RetentionDays = cfg.Logging.RetentionDays
		}
	}
	if v := flagString(cmd, "log-format"); v != "" {
		lc.Format = v
	}
	if v := flagString(cmd, "log-level"); v != "" {
		lc.Level = v
	}
	if v := os.Getenv(envLogFormat); v != "" {
		lc.Format = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		lc.Level = v
	}
	return lc
}
