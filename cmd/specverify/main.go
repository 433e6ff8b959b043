package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dshills/specverify/internal/engine"
)

// version is stamped by the release build; "dev" otherwise.
var version = "dev"

// Exit codes: 0 passed, 1 failed, 2 errored, 130 cancelled.
const (
	exitPassed    = 0
	exitFailed    = 1
	exitErrored   = 2
	exitCancelled = 130
)

// errVerificationFailed signals a completed run whose report status is
// FAILED. It is an exit-code carrier, not an error condition to print.
var errVerificationFailed = errors.New("verification failed")

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	err := root.Execute()
	switch {
	case err == nil:
		return exitPassed
	case errors.Is(err, errVerificationFailed):
		return exitFailed
	case errors.Is(err, engine.ErrCancelled):
		fmt.Fprintln(os.Stderr, "cancelled")
		return exitCancelled
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitErrored
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "specverify",
		Short:         "Verify source code against its specification",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("format", "text", "output format: text, json, or markdown")
	root.PersistentFlags().Int("workers", 0, "extraction workers (0 = default)")
	root.PersistentFlags().String("rules", "", "path to a YAML standards rule file")
	root.PersistentFlags().StringSlice("ignore", nil, "directory names to skip")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	for _, f := range []string{"format", "workers", "rules", "ignore", "verbose"} {
		if err := viper.BindPFlag(f, root.PersistentFlags().Lookup(f)); err != nil {
			panic(err)
		}
	}
	cobra.OnInitialize(initConfig)

	root.AddCommand(newVerifyCmd())
	root.AddCommand(newQuickCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// initConfig loads .specverify.yaml from the working directory or home.
// Missing config is fine; flags and env cover everything.
func initConfig() {
	viper.SetConfigName(".specverify")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetEnvPrefix("SPECVERIFY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
	}
}

// newLogger builds the CLI logger. Quiet by default so report output stays
// clean; verbose mode logs engine progress to stderr.
func newLogger() (*zap.Logger, error) {
	if !viper.GetBool("verbose") {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the specverify version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "specverify %s\n", version)
		},
	}
}
