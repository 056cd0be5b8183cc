package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/yaegashi/resourceprovisioner/internal/logging"
	"github.com/yaegashi/resourceprovisioner/internal/metrics"
)

const (
	envConfig    = "PROVISIONER_CONFIG"
	envDBURL     = "PROVISIONER_DB_URL"
	envLogFormat = "PROVISIONER_LOG_FORMAT"
	envLogLevel  = "PROVISIONER_LOG_LEVEL"

	defaultConfigPath = "provisioner.yml"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "provisioner",
		Short:   "Workspace resourcing orchestrator",
		Long:    "Applies versioned infrastructure templates to per-workspace branches and drives their pull requests to completion.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv(envConfig)
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}
	cmd.PersistentFlags().StringP("config", "C", defaultConfig, "Path to provisioner.yml (env "+envConfig+")")
	cmd.PersistentFlags().String("db-url", os.Getenv(envDBURL), "Run history store, overrides store.url (env "+envDBURL+") (memory: | sqlite:/path/to.db)")
	cmd.PersistentFlags().String("log-format", "", "Log format (human|text|json) (env "+envLogFormat+")")
	cmd.PersistentFlags().String("log-level", "", "Log level (DEBUG|INFO|WARN|ERROR) (env "+envLogLevel+")")
	cmd.PersistentFlags().String("metrics-textfile", "", "Write prometheus metrics to this file when the command ends")

	var logFile *logging.LogFile
	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		lc := logConfig(c)
		lf, err := logging.OpenLogFile(lc)
		if err != nil {
			return err
		}
		logFile = lf
		level, err := logging.ParseLevel(lc.Level)
		if err != nil {
			return err
		}
		l, err := logging.NewWithWriter(lc.Format, level, lf.Writer())
		if err != nil {
			return err
		}
		ctx := logging.WithLogger(c.Context(), l)
		c.SetContext(ctx)
		return nil
	}
	cmd.PersistentPostRunE = func(c *cobra.Command, _ []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdConfig())
	cmd.AddCommand(newCmdModule())
	cmd.AddCommand(newCmdResource())
	return cmd
}

func main() {
	root := newRootCmd()
	m := metrics.New()
	root.SetContext(withMetrics(context.Background(), m))
	executed, err := root.ExecuteC()

	ctx := root.Context()
	if executed != nil {
		ctx = executed.Context()
	}
	if path, _ := root.PersistentFlags().GetString("metrics-textfile"); path != "" {
		if werr := m.WriteToTextfile(path); werr != nil {
			logging.FromContext(ctx).Warn(ctx, "failed to write metrics textfile", "path", path, "err", werr)
		}
	}
	if err != nil {
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		os.Exit(1)
	}
}
