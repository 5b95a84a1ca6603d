package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/formatters"
	"github.com/neurodesk/viewtext/pkg/value"
)

func layoutKind(l config.LayoutConfig) (string, int) {
	switch {
	case len(l.Items) > 0:
		return "dict", len(l.Items)
	case len(l.Lines) > 0:
		return "line", len(l.Lines)
	}
	return "empty", 0
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.configFiles(paths)
			if len(cfg.Layouts) == 0 {
				p.warning("No layouts found in configuration")
				return nil
			}
			t := table{title: "Available Layouts", headers: []string{"Layout Name", "Display Name", "Type", "Count"}}
			for _, name := range cfg.LayoutNames() {
				l := cfg.Layouts[name]
				kind, n := layoutKind(l)
				t.add(name, l.Name, kind, strconv.Itoa(n))
			}
			t.render(p)
			p.total("Total layouts", len(cfg.Layouts))
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <layout>",
		Short: "Show the slots of a layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := a.load()
			if err != nil {
				return err
			}
			l, err := cfg.Layout(args[0])
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.heading("Layout", args[0]+" - "+l.Name)
			switch kind, n := layoutKind(*l); kind {
			case "dict":
				t := table{headers: []string{"Key", "Input", "Presenter", "Formatter", "Parameters"}}
				for _, it := range l.Items {
					t.add(it.Key, it.Input, it.Presenter, it.Formatter, formatParams(it.FormatterParams))
				}
				t.render(p)
				p.total("Total items", n)
			case "line":
				t := table{headers: []string{"Index", "Input", "Presenter", "Formatter", "Parameters"}}
				for _, ln := range l.Lines {
					idx := ""
					if ln.Index != nil {
						idx = strconv.Itoa(*ln.Index)
					}
					t.add(idx, ln.Input, ln.Presenter, ln.Formatter, formatParams(ln.FormatterParams))
				}
				t.render(p)
				p.total("Total lines", n)
			default:
				p.warning("Empty layout (no lines or items)")
			}
			return nil
		},
	}
}

// mappingParams summarises the operation parameters of an input.
func mappingParams(m config.InputMapping) string {
	var parts []string
	add := func(k string, v any) { parts = append(parts, k+"="+value.Repr(v)) }
	if len(m.Sources) > 0 {
		add("sources", value.Normalize(m.Sources))
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{{"multiply", m.Multiply}, {"add", m.Add}, {"divide", m.Divide}, {"min_value", m.MinValue}, {"max_value", m.MaxValue}} {
		if f.v != nil {
			add(f.name, *f.v)
		}
	}
	for _, f := range []struct {
		name string
		v    *int
	}{{"start", m.Start}, {"end", m.End}, {"index", m.Index}, {"decimals", m.DecimalsParam}} {
		if f.v != nil {
			add(f.name, int64(*f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    *string
	}{{"separator", m.Separator}, {"thousands_sep", m.ThousandsSep}, {"decimal_sep", m.DecimalSep}} {
		if f.v != nil {
			add(f.name, *f.v)
		}
	}
	if m.Prefix != "" {
		add("prefix", m.Prefix)
	}
	if m.Suffix != "" {
		add("suffix", m.Suffix)
	}
	if m.SkipEmpty {
		add("skip_empty", true)
	}
	if m.Condition != nil {
		parts = append(parts, "condition="+m.Condition.Field)
	}
	if m.IfTrue != nil {
		add("if_true", m.IfTrue)
	}
	if m.IfFalse != nil {
		add("if_false", m.IfFalse)
	}
	if m.Constant != nil {
		add("constant", m.Constant)
	}
	if m.PythonFunction != "" {
		add("python_function", m.PythonFunction)
	}
	return strings.Join(parts, ", ")
}

func (a *app) inputsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inputs",
		Short: "List the configured input mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.configFiles(paths)
			if len(cfg.Inputs) == 0 {
				p.warning("No input mappings found in configuration")
				return nil
			}
			t := table{title: "Input Mappings", headers: []string{"Input Name", "Context Key", "Operation", "Parameters", "Default", "Transform"}}
			for _, name := range config.SortedNames(cfg.Inputs) {
				m := cfg.Inputs[name]
				def := ""
				if m.Default != nil {
					def = value.String(m.Default)
				}
				t.add(name, m.ContextKey, m.Operation, mappingParams(m), def, m.Transform)
			}
			t.render(p)
			p.total("Total inputs", len(cfg.Inputs))
			return nil
		},
	}
}

func (a *app) presentersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presenters",
		Short: "List the configured presenters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.configFiles(paths)
			if len(cfg.Presenters) == 0 {
				p.warning("No presenter definitions found in configuration")
				return nil
			}
			t := table{title: "Presenter Definitions", headers: []string{"Presenter", "Input", "Formatter", "Parameters"}}
			for _, name := range config.SortedNames(cfg.Presenters) {
				pc := cfg.Presenters[name]
				t.add(name, pc.Input, pc.Formatter, formatParams(pc.FormatterParams))
			}
			t.render(p)
			p.total("Total presenters", len(cfg.Presenters))
			return nil
		},
	}
}

func (a *app) formattersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formatters",
		Short: "List the built-in formatters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := formatters.Default()
			p := newPrinter(cmd.OutOrStdout())
			p.printf("\n%s\n\n", p.header.Render("Available Formatters"))
			t := table{headers: []string{"Formatter", "Description"}}
			for _, name := range reg.Names() {
				t.add(name, reg.Get(name).Description)
			}
			t.render(p)
			p.total("Total formatters", len(reg.Names()))
			return nil
		},
	}
}

type templateUse struct {
	layout, slot, input, template string
	fields                        []string
}

// templateUses finds every slot rendered by the template formatter, either
// directly or through a preset of type template.
func templateUses(cfg *config.Config) []templateUse {
	var out []templateUse
	for _, name := range cfg.LayoutNames() {
		l := cfg.Layouts[name]
		for _, s := range l.Slots() {
			params := s.FormatterParams
			if preset, ok := cfg.FormatterPreset(s.Formatter); ok && preset.Type == "template" && len(params) == 0 {
				params = preset.Params()
			} else if s.Formatter != "template" {
				continue
			}
			tmpl, _ := params["template"].(string)
			fields := formatters.Placeholders(tmpl)
			if raw, ok := params["fields"].([]any); ok {
				fields = fields[:0]
				for _, f := range raw {
					fields = append(fields, value.String(f))
				}
			}
			out = append(out, templateUse{
				layout:   fmt.Sprintf("%s (%s)", name, l.Name),
				slot:     s.Label,
				input:    s.Input,
				template: tmpl,
				fields:   fields,
			})
		}
	}
	return out
}

func (a *app) templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the template formatters used by layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.configFiles(paths)
			uses := templateUses(cfg)
			if len(uses) == 0 {
				p.warning("No template formatters found in configuration")
				return nil
			}
			t := table{title: "Template Formatters", headers: []string{"Layout", "Slot", "Input", "Template", "Fields Used"}}
			for _, u := range uses {
				t.add(u.layout, u.slot, u.input, u.template, strings.Join(u.fields, ", "))
			}
			t.render(p)
			p.total("Total template formatters", len(uses))
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Summarise the loaded configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, cfg, err := a.load()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.printf("\n%s\n\n", p.header.Render("ViewText Configuration Info"))
			for _, path := range paths {
				if st, err := os.Stat(path); err == nil {
					p.printf("- %s - exists (%d bytes)\n", path, st.Size())
				} else {
					p.printf("- %s - missing\n", path)
				}
			}
			p.printf("\n")
			p.printf("%s %d found\n", p.header.Render("Layouts:"), len(cfg.Layouts))
			p.printf("%s %d defined\n", p.header.Render("Inputs:"), len(cfg.Inputs))
			p.printf("%s %d defined\n", p.header.Render("Presenters:"), len(cfg.Presenters))
			if provider := cfg.ContextProviderName(); provider != "" {
				p.printf("%s %s\n", p.header.Render("Context provider:"), provider)
			}
			if len(cfg.Formatters) == 0 {
				p.printf("%s none defined\n\n", p.header.Render("Global Formatters:"))
				return nil
			}
			p.printf("%s %d defined\n\n", p.header.Render("Global Formatters:"), len(cfg.Formatters))
			t := table{title: "Global Formatters", headers: []string{"Name", "Type", "Parameters"}}
			for _, name := range config.SortedNames(cfg.Formatters) {
				preset := cfg.Formatters[name]
				t.add(name, preset.Type, formatParams(preset.Params()))
			}
			t.render(p)
			p.printf("\n")
			return nil
		},
	}
}
