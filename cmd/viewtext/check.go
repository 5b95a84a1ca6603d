package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/formatters"
	"github.com/neurodesk/viewtext/pkg/inputs"
	"github.com/neurodesk/viewtext/pkg/validator"
)

// checkConfig runs the static checks and, when they pass, builds the input
// registry to catch what only compilation finds, such as cyclic sources.
func (a *app) checkConfig(cfg *config.Config) *validator.Report {
	report := config.Check(cfg, formatters.Default().Names())
	if report.OK() {
		if _, err := inputs.FromConfig(cfg, inputs.WithLogger(a.logger)); err != nil {
			report.Error("inputs", err)
		}
	}
	return report
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.configFiles(paths)

			report := a.checkConfig(cfg)
			for _, e := range report.Errors {
				p.printf("%s %s\n", p.bad.Render("error:"), e)
			}
			for _, w := range report.Warnings {
				p.printf("%s %s\n", p.warn.Render("warning:"), w)
			}
			p.printf("\n%d layouts, %d inputs, %d presenters, %d formatter presets\n",
				len(cfg.Layouts), len(cfg.Inputs), len(cfg.Presenters), len(cfg.Formatters))
			if !report.OK() {
				return fmt.Errorf("configuration has %d error(s)", len(report.Errors))
			}
			if len(report.Warnings) == 0 {
				p.printf("%s\n\n", p.title.Render("Configuration is valid"))
			} else {
				p.printf("%s\n\n", p.warn.Render(fmt.Sprintf("Configuration is valid with %d warning(s)", len(report.Warnings))))
			}
			return nil
		},
	}
}
