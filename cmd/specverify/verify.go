package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/specverify/internal/cache"
	"github.com/dshills/specverify/internal/engine"
	"github.com/dshills/specverify/internal/render"
	"github.com/dshills/specverify/internal/schema"
	"github.com/dshills/specverify/internal/source"
	"github.com/dshills/specverify/internal/spec"
	"github.com/dshills/specverify/internal/standards"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <spec-file> [code-root]",
		Short: "Run the full analyzer suite against a source tree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerification(cmd, args, schema.ModeFull)
		},
	}
}

func newQuickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quick <spec-file> [code-root]",
		Short: "Run the security analyzer only, for fast iteration",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerification(cmd, args, schema.ModeQuick)
		},
	}
}

func runVerification(cmd *cobra.Command, args []string, mode schema.Mode) error {
	specPath := args[0]
	codeRoot := "."
	if len(args) > 1 {
		codeRoot = args[1]
	}

	s, err := spec.ParseFile(specPath)
	if err != nil {
		return err
	}
	tree, err := source.NewDirTree(codeRoot, viper.GetStringSlice("ignore"))
	if err != nil {
		return err
	}
	rules, err := loadRules()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eng := engine.New(engine.Options{
		Logger:  log,
		Workers: viper.GetInt("workers"),
		Cache:   cache.New(),
		Rules:   rules,
		Version: version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in := schema.Input{SpecSource: specPath, CodeRoot: codeRoot}
	var report *schema.Report
	if mode == schema.ModeQuick {
		report, err = eng.Quick(ctx, s, in, tree)
	} else {
		report, err = eng.Full(ctx, s, in, tree)
	}
	if err != nil {
		return err
	}

	if err := emit(cmd, report); err != nil {
		return err
	}
	if report.Status != schema.StatusPassed {
		return errVerificationFailed
	}
	return nil
}

func emit(cmd *cobra.Command, report *schema.Report) error {
	out := cmd.OutOrStdout()
	switch format := viper.GetString("format"); format {
	case "json":
		data, err := render.JSON(report)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "markdown", "md":
		_, err := fmt.Fprint(out, render.Markdown(report))
		return err
	case "text", "":
		_, err := fmt.Fprint(out, render.Text(report))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// loadRules returns the effective standards rule set: built-ins, with the
// configured rule file merged over them when one is set.
func loadRules() ([]standards.Rule, error) {
	base := standards.Builtin()
	path := viper.GetString("rules")
	if path == "" {
		return base, nil
	}
	return standards.LoadFile(path, base)
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective standards rule set as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(struct {
				Rules []standards.Rule `yaml:"rules"`
			}{Rules: rules})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
