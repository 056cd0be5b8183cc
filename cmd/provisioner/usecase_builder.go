package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yaegashi/resourceprovisioner/adapters/azdevops"
	"github.com/yaegashi/resourceprovisioner/adapters/gitsync"
	"github.com/yaegashi/resourceprovisioner/adapters/modcatalog"
	"github.com/yaegashi/resourceprovisioner/adapters/template/filesystem"
	"github.com/yaegashi/resourceprovisioner/config/provisionercfg"
	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/naming"
	"github.com/yaegashi/resourceprovisioner/usecase/resourcing"
)

// loadConfig reads and validates the file named by --config.
func loadConfig(cmd *cobra.Command) (*provisionercfg.Root, error) {
	path := flagString(cmd, "config")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := provisionercfg.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// buildCredentials returns nil when no Azure DevOps settings are configured.
func buildCredentials(cfg *provisionercfg.Root) (model.TokenProvider, string, error) {
	settings := cfg.AzureSettings()
	if len(settings) == 0 {
		return nil, "", nil
	}
	tp, err := azdevops.NewTokenProvider(settings)
	if err != nil {
		return nil, "", err
	}
	return tp, azdevops.GitUsername(settings), nil
}

// buildResourcingUseCase wires every adapter of the resourcing workflow.
func buildResourcingUseCase(cmd *cobra.Command) (*resourcing.UseCase, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newResourcingUseCase(cmd, cfg)
}

func newResourcingUseCase(cmd *cobra.Command, cfg *provisionercfg.Root) (*resourcing.UseCase, error) {
	runs, err := buildResourceRunRepository(storeURL(cmd, cfg))
	if err != nil {
		return nil, err
	}
	creds, username, err := buildCredentials(cfg)
	if err != nil {
		return nil, err
	}
	m := metricsFromContext(cmd.Context())

	mr := cfg.ModuleRepository
	ir := cfg.InfrastructureRepository
	gs := gitsync.New(gitsync.Config{
		Layout:             naming.Layout{WorkDir: cfg.WorkDir},
		ModuleURL:          mr.URL,
		ModuleBranch:       mr.Branch,
		ModuleAuthenticate: mr.Authenticate,
		InfrastructureURL:  ir.URL,
		MainBranch:         ir.MainBranch,
		Username:           username,
		Credentials:        creds,
	})
	review := azdevops.New(azdevops.Config{
		PullRequestURL: ir.PullRequestURL,
		BrowserURL:     ir.PullRequestBrowserURL,
		APIVersion:     ir.APIVersion,
		MainBranch:     ir.MainBranch,
		MaxAttempts:    cfg.AutoApprove.MaxAttempts,
		Delay:          cfg.AutoApprove.Delay,
		Credentials:    creds,
		Attempts:       m,
	}, gs)

	return &resourcing.UseCase{
		Repos:          &resourcing.Repos{ResourceRun: runs},
		RepositorySync: gs,
		Catalog:        modcatalog.New(gs, mr.PathPrefix),
		Templates: filesystem.New(gs, filesystem.Config{
			ModulePathPrefix:     mr.PathPrefix,
			WorkspacesPathPrefix: ir.WorkspacesPathPrefix,
			Backend:              ir.Backend,
		}),
		Review:     review,
		Metrics:    m,
		MainBranch: ir.MainBranch,
	}, nil
}

// buildRunsUseCase wires only the run history; no repositories are touched.
func buildRunsUseCase(cmd *cobra.Command) (*resourcing.UseCase, error) {
	var cfg *provisionercfg.Root
	if flagString(cmd, "db-url") == "" {
		c, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	runs, err := buildResourceRunRepository(storeURL(cmd, cfg))
	if err != nil {
		return nil, err
	}
	return &resourcing.UseCase{Repos: &resourcing.Repos{ResourceRun: runs}}, nil
}
