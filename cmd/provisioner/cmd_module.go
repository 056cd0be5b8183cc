package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"github.com/yaegashi/resourceprovisioner/usecase/resourcing"
)

func newCmdModule() *cobra.Command {
	c := &cobra.Command{
		Use:                "module",
		Aliases:            []string{"mod"},
		Short:              "Module repository commands",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	c.AddCommand(newCmdModuleVersions())
	return c
}

type moduleVersionsView struct {
	Versions []string `json:"versions"`
	Latest   string   `json:"latest,omitempty"`
}

func newCmdModuleVersions() *cobra.Command {
	var acronym string
	c := &cobra.Command{
		Use:                "versions",
		Short:              "List module versions visible to a workspace",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		Args:               cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			uc, err := buildResourcingUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			ctx, cleanup := withCmdRunLogger(ctx, "module.versions", acronym)
			defer func() { cleanup(err) }()

			out, err := uc.ListModuleVersions(ctx, &resourcing.ListModuleVersionsInput{WorkspaceAcronym: acronym})
			if err != nil {
				return err
			}
			view := moduleVersionsView{Versions: make([]string, 0, len(out.Versions))}
			for _, v := range out.Versions {
				view.Versions = append(view.Versions, v.Tag())
			}
			if out.Latest != nil {
				view.Latest = out.Latest.Tag()
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(view)
		},
	}
	c.Flags().StringVarP(&acronym, "workspace", "w", "", "Workspace acronym whose module clone is used")
	_ = c.MarkFlagRequired("workspace")
	return c
}
