package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/usecase/resourcing"
)

const defaultRunTimeout = 30 * time.Minute

func newCmdResource() *cobra.Command {
	c := &cobra.Command{
		Use:                "resource",
		Aliases:            []string{"res"},
		Short:              "Apply templates to workspaces",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	c.PersistentFlags().Duration("timeout", defaultRunTimeout, "Timeout for one resourcing run")
	c.AddCommand(newCmdResourceRun())
	c.AddCommand(newCmdResourceBatch())
	c.AddCommand(newCmdResourceRuns())
	return c
}

// runResult is the JSON line printed for each resourcing request.
type runResult struct {
	RunID   string                   `json:"runId,omitempty"`
	Outcome *model.ResourcingOutcome `json:"outcome,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

func newRunResult(out *resourcing.HandleOutput, err error) runResult {
	var r runResult
	if out != nil {
		r.RunID = out.RunID
		r.Outcome = out.Outcome
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func timeoutFlag(cmd *cobra.Command) time.Duration {
	if f := findFlag(cmd, "timeout"); f != nil {
		if d, err := time.ParseDuration(f.Value.String()); err == nil && d > 0 {
			return d
		}
	}
	return defaultRunTimeout
}

func newCmdResourceRun() *cobra.Command {
	var (
		acronym   string
		orgName   string
		orgID     string
		user      string
		templates []string
	)
	c := &cobra.Command{
		Use:                "run",
		Short:              "Apply templates to one workspace and complete its pull request",
		Example:            "  provisioner resource run -w ABC --organization Contoso -u alice@example.com -t new-workspace -t enable-storage",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		Args:               cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			uc, err := buildResourcingUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag(cmd))
			defer cancel()
			ctx, cleanup := withCmdRunLogger(ctx, "resource.run", acronym)
			defer func() { cleanup(err) }()

			in := &resourcing.HandleInput{
				Workspace: &model.Workspace{
					Acronym:      acronym,
					Organization: &model.Organization{Name: orgName, ID: orgID},
				},
				Templates:      toTemplates(templates),
				RequestingUser: user,
			}
			out, err := uc.Handle(ctx, in)
			if out != nil {
				if encErr := json.NewEncoder(cmd.OutOrStdout()).Encode(newRunResult(out, err)); encErr != nil {
					return errors.Join(err, encErr)
				}
			}
			return err
		},
	}
	c.Flags().StringVarP(&acronym, "workspace", "w", "", "Workspace acronym")
	c.Flags().StringVar(&orgName, "organization", "", "Organization name")
	c.Flags().StringVar(&orgID, "organization-id", "", "Organization id")
	c.Flags().StringVarP(&user, "user", "u", "", "Requesting user recorded as commit author")
	c.Flags().StringArrayVarP(&templates, "template", "t", nil, "Template to apply (repeatable)")
	return c
}

func toTemplates(names []string) []model.Template {
	out := make([]model.Template, 0, len(names))
	for _, n := range names {
		out = append(out, model.Template{Name: n})
	}
	return out
}

func newCmdResourceRuns() *cobra.Command {
	c := &cobra.Command{
		Use:                "runs",
		Short:              "Inspect stored resourcing runs",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	c.AddCommand(newCmdResourceRunsList())
	c.AddCommand(newCmdResourceRunsGet())
	return c
}

func newCmdResourceRunsList() *cobra.Command {
	var (
		acronym string
		limit   int
	)
	c := &cobra.Command{
		Use:                "list",
		Short:              "List runs, most recent first",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		Args:               cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := buildRunsUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			out, err := uc.ListRuns(ctx, &resourcing.ListRunsInput{WorkspaceAcronym: acronym, Limit: limit})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, it := range out.Runs {
				if err := enc.Encode(it); err != nil {
					return err
				}
			}
			return nil
		},
	}
	c.Flags().StringVarP(&acronym, "workspace", "w", "", "Only runs of this workspace")
	c.Flags().IntVar(&limit, "limit", 0, "Maximum number of runs (0 for all)")
	return c
}

func newCmdResourceRunsGet() *cobra.Command {
	return &cobra.Command{
		Use:                "get <run-id>",
		Short:              "Show one run",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		Args:               cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := buildRunsUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			out, err := uc.GetRun(ctx, &resourcing.GetRunInput{RunID: args[0]})
			if err != nil {
				return fmt.Errorf("failed to get run %s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out.Run)
		},
	}
}
