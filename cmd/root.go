package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/compozy/monorelease/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	workDir string
)

var rootCmd = &cobra.Command{
	Use:           "monorelease",
	Short:         "Semantic versioning and release orchestration for monorepos",
	Long:          `monorelease computes the next version of a workspace project from its conventional commits, writes changelogs, commits, tags, pushes and runs post-release targets.`,
	Version:       safeValue(version.Version, "dev"),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Version:\t%s\nCommit:\t%s\nBuilt:\t%s\n",
		safeValue(version.Version, "dev"),
		safeValue(version.CommitHash, "unknown"),
		safeValue(version.BuildDate, "unknown"),
	))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable development logging")
	rootCmd.PersistentFlags().StringVar(&workDir, "cwd", ".", "Workspace root directory")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context so
// in-flight git processes are terminated.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// InitCommands registers every subcommand.
func InitCommands() error {
	rootCmd.AddCommand(newVersionCmd(), newDryRunCmd())
	return nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func safeValue(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
