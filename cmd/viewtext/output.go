package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/neurodesk/viewtext/pkg/value"
)

// printer writes styled text. Colors are dropped when w is not a terminal.
type printer struct {
	w io.Writer

	title, key, dim, warn, bad, header lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:      w,
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		key:    r.NewStyle().Foreground(lipgloss.Color("6")),
		dim:    r.NewStyle().Faint(true),
		warn:   r.NewStyle().Foreground(lipgloss.Color("3")),
		bad:    r.NewStyle().Foreground(lipgloss.Color("1")),
		header: r.NewStyle().Bold(true),
	}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) heading(label, text string) {
	p.printf("\n%s %s\n\n", p.title.Render(label+":"), text)
}

func (p *printer) rule() {
	p.printf("%s\n", p.dim.Render(strings.Repeat("─", 80)))
}

func (p *printer) configFiles(paths []string) {
	p.printf("\n%s\n", p.title.Render("Configuration Files:"))
	for _, path := range paths {
		p.printf("  • %s\n", path)
	}
	p.printf("\n")
}

func (p *printer) total(label string, n int) {
	p.printf("\n%s %d\n\n", p.header.Render(label+":"), n)
}

func (p *printer) warning(msg string) {
	p.printf("%s\n", p.warn.Render(msg))
}

// table is a left-aligned text table. Widths are measured in terminal
// cells so wide runes line up.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(p *printer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}
	line := func(cells []string, style func(int, string) string) {
		parts := make([]string, len(widths))
		for i := range widths {
			c := ""
			if i < len(cells) {
				c = cells[i]
			}
			padded := c
			if i < len(widths)-1 {
				padded = runewidth.FillRight(c, widths[i])
			}
			parts[i] = style(i, padded)
		}
		p.printf("%s\n", strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	if t.title != "" {
		p.printf("%s\n", p.header.Render(t.title))
	}
	line(t.headers, func(_ int, s string) string { return p.header.Render(s) })
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	p.printf("%s\n", p.dim.Render(strings.Repeat("─", max(total-2, 0))))
	for _, row := range t.rows {
		line(row, func(i int, s string) string {
			if i == 0 {
				return p.key.Render(s)
			}
			return s
		})
	}
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// formatParams renders formatter parameters as sorted key=value pairs.
func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + value.Repr(params[k])
	}
	return strings.Join(parts, ", ")
}
