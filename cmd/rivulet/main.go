package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦═╗┬┬  ┬┬ ┬┬  ┌─┐┌┬┐
  ╠╦╝│└┐┌┘│ ││  ├┤  │
  ╩╚═┴ └┘ └─┘┴─┘└─┘ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "rivulet",
		Short: "Push-based event streams over WebSocket",
		Long: `Rivulet serves named event streams to WebSocket clients.

Topics are hot streams: every value published to a topic fans out
to all connected clients in real time, and a terminal event ends
the topic for everyone at once. Features include:

  • Hot multicast topics with typed terminal events
  • JSON frames over WebSocket
  • NDJSON journaling to disk or S3
  • Prometheus metrics and health endpoint
  • Live terminal viewer for any topic`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		watchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the Rivulet ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
