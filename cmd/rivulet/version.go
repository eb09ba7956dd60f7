package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rivulet %s (%s)\n", version, commit)
			if verbose {
				fmt.Printf("  built:    %s\n", date)
				fmt.Printf("  go:       %s\n", runtime.Version())
				fmt.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include build details")

	return cmd
}
