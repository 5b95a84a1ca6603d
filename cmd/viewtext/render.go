package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/engine"
	"github.com/neurodesk/viewtext/pkg/value"
)

type outputFlags struct {
	json, yaml bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.json, "json", "j", false, "Output as JSON")
	cmd.Flags().BoolVar(&o.yaml, "yaml", false, "Output as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

// write emits v as JSON or YAML. ok is false when neither was requested.
func (o *outputFlags) write(cmd *cobra.Command, v any) (bool, error) {
	switch {
	case o.json:
		return true, writeJSON(cmd.OutOrStdout(), v)
	case o.yaml:
		return true, writeYAML(cmd.OutOrStdout(), v)
	}
	return false, nil
}

type renderOptions struct {
	out        outputFlags
	accumulate bool
	strict     bool
}

func (o *renderOptions) register(cmd *cobra.Command) {
	o.out.register(cmd)
	cmd.Flags().BoolVar(&o.accumulate, "accumulate", false, "Evaluate every input in order before rendering so operations can read other inputs")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Fail when a slot fails instead of rendering it empty")
}

func (a *app) renderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render <layout>",
		Short: "Render a layout against the current context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.renderLayout(cmd, args[0], &opts)
		},
	}
	opts.register(cmd)
	return cmd
}

// renderLayout loads the configuration, resolves the context and prints
// the rendered layout.
func (a *app) renderLayout(cmd *cobra.Command, name string, opts *renderOptions) error {
	paths, cfg, err := a.load()
	if err != nil {
		return err
	}
	layout, err := cfg.Layout(name)
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(cfg.LayoutNames(), ", "))
	}
	eng, err := a.engine(cfg, engine.WithAccumulation(opts.accumulate))
	if err != nil {
		return err
	}
	ctx, err := a.resolveContext(cmd, paths, cfg)
	if err != nil {
		return err
	}

	res, err := eng.Render(layout, ctx)
	if err != nil {
		if opts.strict {
			return err
		}
		a.logger.Warn("layout rendered with errors", "layout", name, "error", err)
	}

	var data any = res.Lines
	if layout.IsDict() {
		data = res.Dict
	}
	if ok, err := opts.out.write(cmd, data); ok {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	p.heading("Rendered Output", name)
	p.rule()
	if layout.IsDict() {
		keys := make([]string, 0, len(res.Dict))
		for k := range res.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.printf("%s %s\n", p.key.Render(k+":"), res.Dict[k])
		}
	} else {
		for i, line := range res.Lines {
			p.printf("%s %s\n", p.key.Render(fmt.Sprintf("%d:", i)), line)
		}
	}
	p.rule()
	p.printf("\n")
	return nil
}

// referencedInputs lists the inputs a layout reads directly or through a
// presenter.
func referencedInputs(cfg *config.Config, layout *config.LayoutConfig) map[string]bool {
	out := map[string]bool{}
	for _, s := range layout.Slots() {
		if s.Input != "" {
			out[s.Input] = true
		}
		if p, ok := cfg.Presenter(s.Presenter); ok && p.Input != "" {
			out[p.Input] = true
		}
	}
	return out
}

func (a *app) renderInputsCmd() *cobra.Command {
	var (
		out        outputFlags
		layoutName string
		dump       bool
	)
	cmd := &cobra.Command{
		Use:   "render-inputs",
		Short: "Evaluate every input in order and show the values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			eng, err := a.engine(cfg)
			if err != nil {
				return err
			}
			names := eng.Inputs().Names()
			if layoutName != "" {
				layout, err := cfg.Layout(layoutName)
				if err != nil {
					return fmt.Errorf("%w (available: %s)", err, strings.Join(cfg.LayoutNames(), ", "))
				}
				refs := referencedInputs(cfg, layout)
				filtered := names[:0]
				for _, n := range names {
					if refs[n] {
						filtered = append(filtered, n)
					}
				}
				names = filtered
			}
			p := newPrinter(cmd.OutOrStdout())
			if len(names) == 0 {
				p.warning("No inputs to render")
				return nil
			}

			ctx, err := a.resolveContext(cmd, paths, cfg)
			if err != nil {
				return err
			}
			evaluated, err := eng.Inputs().Evaluate(ctx, names)
			if err != nil {
				return err
			}
			results := make(map[string]any, len(names))
			kept := names[:0]
			for _, n := range names {
				if v, ok := evaluated[n]; ok {
					results[n] = v
					kept = append(kept, n)
				}
			}
			names = kept
			if dump {
				spew.Fdump(cmd.OutOrStdout(), results)
				return nil
			}
			if ok, err := out.write(cmd, results); ok {
				return err
			}

			p.configFiles(paths)
			t := table{title: "Rendered Inputs", headers: []string{"Input", "Value", "Context Key", "Operation", "Sources", "Default"}}
			for _, n := range names {
				m, _ := eng.Inputs().Mapping(n)
				def := ""
				if m.Default != nil {
					def = value.Repr(m.Default)
				}
				t.add(n, value.Repr(results[n]), m.ContextKey, m.Operation, strings.Join(m.Sources, ", "), def)
			}
			t.render(p)
			p.total("Total inputs rendered", len(names))
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().StringVarP(&layoutName, "layout", "l", "", "Limit to inputs referenced by this layout")
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump the evaluated values with their Go types")
	return cmd
}

type presenterResult struct {
	Input     string         `json:"input" yaml:"input"`
	Raw       any            `json:"raw" yaml:"raw"`
	Rendered  string         `json:"rendered" yaml:"rendered"`
	Formatter string         `json:"formatter" yaml:"formatter"`
	Params    map[string]any `json:"params" yaml:"params"`
}

func (a *app) renderPresentersCmd() *cobra.Command {
	var (
		out        outputFlags
		layoutName string
	)
	cmd := &cobra.Command{
		Use:   "render-presenters",
		Short: "Render every presenter against the current context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			names := config.SortedNames(cfg.Presenters)
			if layoutName != "" {
				layout, err := cfg.Layout(layoutName)
				if err != nil {
					return fmt.Errorf("%w (available: %s)", err, strings.Join(cfg.LayoutNames(), ", "))
				}
				used := map[string]bool{}
				for _, s := range layout.Slots() {
					used[s.Presenter] = true
				}
				filtered := names[:0]
				for _, n := range names {
					if used[n] {
						filtered = append(filtered, n)
					}
				}
				names = filtered
			}
			p := newPrinter(cmd.OutOrStdout())
			if len(names) == 0 {
				p.warning("No presenters to render")
				return nil
			}

			eng, err := a.engine(cfg)
			if err != nil {
				return err
			}
			ctx, err := a.resolveContext(cmd, paths, cfg)
			if err != nil {
				return err
			}
			evalCtx := value.Context(ctx).Clone()
			results := make(map[string]presenterResult, len(names))
			for _, n := range names {
				pc, _ := cfg.Presenter(n)
				res := presenterResult{Input: pc.Input, Formatter: pc.Formatter, Params: pc.FormatterParams}
				if pc.Input != "" {
					raw, err := eng.Inputs().Resolve(pc.Input, evalCtx)
					if err != nil {
						return fmt.Errorf("presenter %s: %w", n, err)
					}
					evalCtx[pc.Input] = raw
					res.Raw = raw
				}
				res.Rendered = value.String(res.Raw)
				if pc.Formatter != "" {
					res.Rendered, err = eng.FormatValue(res.Raw, pc.Formatter, pc.FormatterParams, evalCtx)
					if err != nil {
						return fmt.Errorf("presenter %s: %w", n, err)
					}
				}
				results[n] = res
			}
			if ok, err := out.write(cmd, results); ok {
				return err
			}

			p.configFiles(paths)
			t := table{title: "Rendered Presenters", headers: []string{"Presenter", "Input", "Formatter", "Parameters", "Raw Value", "Rendered"}}
			for _, n := range names {
				r := results[n]
				t.add(n, r.Input, r.Formatter, formatParams(r.Params), value.Repr(r.Raw), value.Repr(r.Rendered))
			}
			t.render(p)
			p.total("Total presenters rendered", len(names))
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().StringVarP(&layoutName, "layout", "l", "", "Limit to presenters used by this layout")
	return cmd
}
