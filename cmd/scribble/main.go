package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	herrors "github.com/vango-go/scribble/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		herrors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scribble",
		Short: "A shared canvas for everyone on the network",
		Long: `Scribble hosts a collaborative drawing canvas.

Clients connect over WebSocket and draw on one shared board. The
server renders every connected client at a fixed tick rate:

  • Live strokes from every participant
  • Shared list of finished drawings with edit and delete
  • Optional mDNS advertisement on the local network
  • Prometheus metrics on /metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)
	return cmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
