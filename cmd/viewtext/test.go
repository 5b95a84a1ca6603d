package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/formatters"
	vstar "github.com/neurodesk/viewtext/pkg/starlark"
	"github.com/neurodesk/viewtext/pkg/value"
)

// parseContextValues turns key=value arguments into a context. Values are
// read as literals (numbers, strings, lists, dicts, True/False/None); a
// value that is not a literal is kept as a plain string.
func parseContextValues(args []string) (map[string]any, error) {
	ctx := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context value %q, expected key=value", arg)
		}
		v, err := vstar.NewEvaluator(nil).Eval(raw)
		if err != nil {
			v = raw
		}
		ctx[key] = value.Normalize(v)
	}
	return ctx, nil
}

// slotParams finds the formatter parameters a layout uses for input with
// the given formatter.
func slotParams(layout *config.LayoutConfig, input, formatter string) (map[string]any, bool) {
	for _, s := range layout.Slots() {
		if s.Input == input && s.Formatter == formatter {
			return s.FormatterParams, true
		}
	}
	return nil, false
}

func fieldList(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		out = append(out, value.String(f))
	}
	return out
}

func (a *app) testCmd() *cobra.Command {
	var (
		formatter  string
		layoutName string
		dump       bool
	)
	cmd := &cobra.Command{
		Use:   "test <input> [key=value...]",
		Short: "Resolve one input against literal context values",
		Example: `  viewtext test total price=19.99 qty=3
  viewtext test pair ticker='{"base": "BTC", "quote": "USD"}' --formatter pair`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := a.load()
			if err != nil {
				return err
			}
			name := args[0]
			mapping, ok := cfg.Inputs[name]
			if !ok {
				return fmt.Errorf("input %q not found (available: %s)", name, strings.Join(config.SortedNames(cfg.Inputs), ", "))
			}
			ctx, err := parseContextValues(args[1:])
			if err != nil {
				return err
			}
			eng, err := a.engine(cfg)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.heading("Testing Input", name)
			op := mapping.Operation
			if op == "" {
				op = "none"
			}
			p.printf("%s %s\n", p.header.Render("Operation:"), op)
			if len(mapping.Sources) > 0 {
				p.printf("%s %s\n", p.header.Render("Sources:"), strings.Join(mapping.Sources, ", "))
			}
			p.printf("%s %s\n", p.header.Render("Default:"), value.Repr(mapping.Default))
			if formatter != "" {
				p.printf("%s %s\n", p.header.Render("Formatter:"), formatter)
			}
			if layoutName != "" {
				p.printf("%s %s\n", p.header.Render("Layout:"), layoutName)
			}
			p.printf("\n%s\n", p.header.Render("Context:"))
			if len(ctx) == 0 {
				p.printf("  %s\n", p.dim.Render("(empty)"))
			}
			keys := make([]string, 0, len(ctx))
			for k := range ctx {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				p.printf("  %s = %s\n", k, value.Repr(ctx[k]))
			}

			result, err := eng.Inputs().Resolve(name, ctx)
			if err != nil {
				return err
			}
			p.printf("\n%s %s\n", p.title.Render("Result:"), value.Repr(result))
			if dump {
				spew.Fdump(cmd.OutOrStdout(), result)
			}
			if formatter == "" {
				return nil
			}

			var params map[string]any
			if layoutName != "" {
				layout, err := cfg.Layout(layoutName)
				if err != nil {
					return fmt.Errorf("%w (available: %s)", err, strings.Join(cfg.LayoutNames(), ", "))
				}
				var found bool
				params, found = slotParams(layout, name, formatter)
				if !found {
					p.warning(fmt.Sprintf("Input %q with formatter %q not found in layout %q", name, formatter, layoutName))
				} else if len(params) > 0 {
					p.printf("\n%s %s\n", p.header.Render("Formatter Parameters:"), formatParams(params))
				}
			}

			typ, effective := formatter, params
			if len(params) == 0 {
				if preset, ok := cfg.FormatterPreset(formatter); ok {
					typ, effective = preset.Type, preset.Params()
				}
			} else if t, ok := params["type"].(string); ok && t != "" {
				typ = t
			}
			v := result
			if typ == "template" {
				if tmpl, _ := effective["template"].(string); tmpl == "" {
					p.warning("Template formatter needs 'template' and 'fields'; use --layout to pick them up from a layout")
				}
				v = formatters.WrapPrefix(v, fieldList(effective["fields"]))
			}
			out, err := eng.FormatValue(v, formatter, params, ctx)
			if err != nil {
				return err
			}
			p.printf("%s %s\n", p.title.Render("Formatted:"), value.Repr(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatter, "formatter", "F", "", "Formatter to apply to the result")
	cmd.Flags().StringVarP(&layoutName, "layout", "l", "", "Layout to take formatter parameters from")
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump the result with its Go type")
	return cmd
}
