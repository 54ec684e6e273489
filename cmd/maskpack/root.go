package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var dirFlag string
	var firstFlag bool

	ctx := newCommandContext(&configFlag, &dirFlag, &firstFlag)

	rootCmd := &cobra.Command{
		Use:           "maskpack",
		Short:         "Package photomask orders for review and vendor delivery",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "", "Launch directory (defaults to the working directory)")
	rootCmd.PersistentFlags().BoolVar(&firstFlag, "first", false, "Pick the first candidate instead of prompting when several folders match")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newPackageCommand(ctx))
	rootCmd.AddCommand(newArchivesCommand(ctx))
	rootCmd.AddCommand(newFinalFolderCommand(ctx))
	rootCmd.AddCommand(newChecklistCommand(ctx))
	rootCmd.AddCommand(newCleanupCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
