package inputs

import (
	"errors"
	"maps"

	"github.com/neurodesk/viewtext/pkg/chain"
)

// Resolve returns the value of input name in ctx. Names that are not
// registered pass through to ctx[name]. The error is non-nil only for a
// failed validation with the raise strategy.
func (r *Registry) Resolve(name string, ctx map[string]any) (any, error) {
	v, err := r.resolve(name, ctx)
	if errors.Is(err, errSkipped) {
		return nil, nil
	}
	return v, err
}

// resolve is Resolve with skipped values reported as errSkipped.
func (r *Registry) resolve(name string, ctx map[string]any) (any, error) {
	f, ok := r.fields[name]
	if !ok {
		return ctx[name], nil
	}
	v, ok := r.raw(f, ctx)
	if !ok {
		return f.mapping.Default, nil
	}
	if f.mapping.Transform != "" {
		t, err := applyTransform(v, f.mapping.Transform)
		if err != nil {
			r.logger.Debug("transform failed", "input", name, "transform", f.mapping.Transform, "error", err)
			return f.mapping.Default, nil
		}
		v = t
	}
	return r.validate(f, v)
}

// Value is Resolve with validation errors logged and dropped.
func (r *Registry) Value(name string, ctx map[string]any) any {
	v, err := r.Resolve(name, ctx)
	if err != nil {
		r.logger.Debug("input rejected", "input", name, "error", err)
		return nil
	}
	return v
}

// raw produces the untransformed value. ok is false when the default
// should be used.
func (r *Registry) raw(f *field, ctx map[string]any) (any, bool) {
	m := &f.mapping
	switch {
	case m.Constant != nil:
		return m.Constant, true
	case f.op != nil:
		v, err := f.op.Apply(f.params, ctx)
		if err != nil {
			r.logger.Debug("operation fell back to default", "input", f.name, "operation", f.op.Name, "error", err)
			return nil, false
		}
		return v, v != nil
	case m.PythonFunction != "":
		v, err := r.hook.Eval(m.PythonFunction, ctx)
		if err != nil {
			r.logger.Debug("hook fell back to default", "input", f.name, "error", err)
			return nil, false
		}
		return v, v != nil
	}

	v, err := chain.Resolve(f.ops, ctx)
	if err != nil {
		var missing chain.ErrKeyNotFound
		if !errors.As(err, &missing) {
			r.logger.Debug("chain fell back to default", "input", f.name, "chain", chain.String(f.ops), "error", err)
		}
		return nil, false
	}
	return v, v != nil
}

// Evaluate resolves inputs into a copy of ctx, each one written under its
// name before the next is resolved, so operations may read earlier inputs
// as sources. With a nil order every input is evaluated in registry order.
// Inputs dropped by the skip strategy are left out of the result. The
// first raise-strategy validation failure stops evaluation.
func (r *Registry) Evaluate(ctx map[string]any, order []string) (map[string]any, error) {
	if order == nil {
		order = r.order
	}
	out := make(map[string]any, len(ctx)+len(order))
	maps.Copy(out, ctx)
	for _, name := range order {
		v, err := r.resolve(name, out)
		switch {
		case errors.Is(err, errSkipped):
			delete(out, name)
			continue
		case err != nil:
			return out, err
		}
		out[name] = v
	}
	return out, nil
}
