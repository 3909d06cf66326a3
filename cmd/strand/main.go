package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strand-rt/strand/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌┬┐┬─┐┌─┐┌┐┌┌┬┐
  └─┐ │ ├┬┘├─┤│││ ││
  └─┘ ┴ ┴└─┴ ┴┘└┘─┴┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "strand",
		Short: "A partitioned runtime for interactive applications",
		Long: `Strand runs the stateful engines of an interactive application
(audio, draw, update) as relocatable servers spread across OS
threads. Features include:

  • Runtime relocation of servers between threads
  • Frequency-paced loops with drift correction
  • Cancellable deferred callbacks
  • Blocking cross-thread calls with bounded waits
  • A live debug inspector`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		initCmd(),
		runCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the strand ASCII art banner.
func printBanner() {
	fmt.Print(banner)
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
