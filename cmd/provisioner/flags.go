package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// findFlag searches flags from the command up to the root.
func findFlag(cmd *cobra.Command, name string) *pflag.Flag {
	for c := cmd; c != nil; c = c.Parent() {
		if f := c.Flags().Lookup(name); f != nil {
			return f
		}
		if f := c.PersistentFlags().Lookup(name); f != nil {
			return f
		}
	}
	return nil
}

func flagString(cmd *cobra.Command, name string) string {
	if f := findFlag(cmd, name); f != nil {
		return f.Value.String()
	}
	return ""
}
