package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCmdConfig() *cobra.Command {
	c := &cobra.Command{
		Use:                "config",
		Short:              "Configuration commands",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	c.AddCommand(newCmdConfigShow())
	return c
}

// newCmdConfigShow validates the configuration and prints it with defaults
// applied and secrets masked.
func newCmdConfigShow() *cobra.Command {
	var format string
	c := &cobra.Command{
		Use:   "show",
		Short: "Validate and show configuration with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			masked := cfg.Masked()
			switch format {
			case "yaml", "":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(masked); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(masked)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	c.Flags().StringVarP(&format, "output", "o", "yaml", "Output format (yaml|json)")
	return c
}
