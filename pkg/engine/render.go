package engine

import (
	"fmt"

	"github.com/neurodesk/viewtext/pkg/config"
)

// RenderLines renders a lines layout. The result has max(index)+1 entries;
// lines without an index or with a negative one are dropped, and unfilled
// positions are empty. A failing slot renders empty and its error is
// joined into the returned error without stopping the layout.
func (e *Engine) RenderLines(layout *config.LayoutConfig, ctx map[string]any) ([]string, error) {
	size := 0
	for _, ln := range layout.Lines {
		if ln.Index != nil && *ln.Index+1 > size {
			size = *ln.Index + 1
		}
	}
	if size == 0 {
		size = 1
	}
	out := make([]string, size)

	r := e.newRenderer(ctx)
	for i, ln := range layout.Lines {
		if ln.Index == nil || *ln.Index < 0 {
			e.logger.Debug("line dropped", "layout", layout.Name, "position", i)
			continue
		}
		s, ok := r.slot(config.Slot{
			Label:           fmt.Sprintf("line %d", *ln.Index),
			Input:           ln.Input,
			Presenter:       ln.Presenter,
			Formatter:       ln.Formatter,
			FormatterParams: ln.FormatterParams,
		})
		if ok {
			out[*ln.Index] = s
		}
	}
	return out, r.err()
}

// RenderDict renders a dict layout keyed by each item's key. Items without
// a key or without an input are skipped.
func (e *Engine) RenderDict(layout *config.LayoutConfig, ctx map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(layout.Items))
	r := e.newRenderer(ctx)
	for _, it := range layout.Items {
		if it.Key == "" {
			continue
		}
		s, ok := r.slot(config.Slot{
			Label:           fmt.Sprintf("item %q", it.Key),
			Input:           it.Input,
			Presenter:       it.Presenter,
			Formatter:       it.Formatter,
			FormatterParams: it.FormatterParams,
		})
		if ok {
			out[it.Key] = s
		}
	}
	return out, r.err()
}

// BuildLines is RenderLines with slot errors logged instead of returned.
func (e *Engine) BuildLines(layout *config.LayoutConfig, ctx map[string]any) []string {
	out, err := e.RenderLines(layout, ctx)
	if err != nil {
		e.logger.Debug("layout rendered with errors", "layout", layout.Name, "error", err)
	}
	return out
}

// BuildDict is RenderDict with slot errors logged instead of returned.
func (e *Engine) BuildDict(layout *config.LayoutConfig, ctx map[string]any) map[string]string {
	out, err := e.RenderDict(layout, ctx)
	if err != nil {
		e.logger.Debug("layout rendered with errors", "layout", layout.Name, "error", err)
	}
	return out
}

// Result is a rendered layout of either kind.
type Result struct {
	Layout string
	Lines  []string
	Dict   map[string]string
}

// Render renders layout as lines or as a dict depending on its shape.
func (e *Engine) Render(layout *config.LayoutConfig, ctx map[string]any) (*Result, error) {
	res := &Result{Layout: layout.Name}
	var err error
	if layout.IsDict() {
		res.Dict, err = e.RenderDict(layout, ctx)
	} else {
		res.Lines, err = e.RenderLines(layout, ctx)
	}
	return res, err
}
