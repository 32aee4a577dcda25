package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/collector"
	"censys-toolkit/internal/config"
	"censys-toolkit/internal/masterlist"
)

var (
	flagDebug   bool
	flagQuiet   bool
	flagLogFile string
)

var rootCmd = &cobra.Command{
	Use:   "censys-toolkit",
	Short: "Collect domains for a target from Censys DNS and certificate data",
	Long: `censys-toolkit queries the Censys Search API for hosts and certificates that
mention a target domain, writes the discovered names as JSON or text, and keeps
a deduplicated master list across runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

func errorHint(err error) string {
	var (
		authErr   *api.AuthenticationError
		failedErr *collector.CollectionFailedError
		ioErr     *masterlist.IOError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "Interrupted; no output was written."
	case errors.As(err, &authErr):
		return "Check your credentials with 'censys-toolkit config show' or set them with 'censys-toolkit config set-credentials <id> <secret>'."
	case errors.As(err, &failedErr):
		return "The API kept failing. Try again later or lower CENSYS_RATE_LIMIT."
	case errors.As(err, &ioErr) && ioErr.Op == "load" && errors.Is(err, fs.ErrNotExist):
		return "Use --mode replace to start a new master list."
	}
	return ""
}

func init() {
	cobra.OnInitialize(config.InitConfig)
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging (also DEBUG=true)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors and skip the console summary")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Also write logs to this rotated file (also LOG_FILE)")
}
