package operations

import (
	"fmt"
	"math"
	"strconv"
)

type numericFunc func(vals []float64, p *Params) (float64, error)

var numericOps = map[string]struct {
	desc string
	fn   numericFunc
}{
	"celsius_to_fahrenheit": {"convert Celsius to Fahrenheit", unary(func(v float64) float64 { return v*9/5 + 32 })},
	"fahrenheit_to_celsius": {"convert Fahrenheit to Celsius", unary(func(v float64) float64 { return (v - 32) * 5 / 9 })},
	"abs":                   {"absolute value", unary(math.Abs)},
	"multiply": {"product of the first two sources", func(vals []float64, _ *Params) (float64, error) {
		switch len(vals) {
		case 0:
			return 0, nil
		case 1:
			return vals[0], nil
		}
		return vals[0] * vals[1], nil
	}},
	"divide": {"first source divided by the second", func(vals []float64, _ *Params) (float64, error) {
		if len(vals) != 2 {
			return 0, fmt.Errorf("divide takes 2 values, got %d", len(vals))
		}
		if vals[1] == 0 {
			return 0, ErrNoValue
		}
		return vals[0] / vals[1], nil
	}},
	"add": {"sum of all sources", func(vals []float64, _ *Params) (float64, error) {
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum, nil
	}},
	"subtract": {"first source minus the second", func(vals []float64, _ *Params) (float64, error) {
		if len(vals) != 2 {
			return 0, fmt.Errorf("subtract takes 2 values, got %d", len(vals))
		}
		return vals[0] - vals[1], nil
	}},
	"average": {"mean of all sources", func(vals []float64, _ *Params) (float64, error) {
		if len(vals) == 0 {
			return 0, ErrNoValue
		}
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum / float64(len(vals)), nil
	}},
	"min": {"smallest source", func(vals []float64, _ *Params) (float64, error) {
		if len(vals) == 0 {
			return 0, ErrNoValue
		}
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	}},
	"max": {"largest source", func(vals []float64, _ *Params) (float64, error) {
		if len(vals) == 0 {
			return 0, ErrNoValue
		}
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	}},
	"round": {"round to N decimals (N from the multiply parameter)", func(vals []float64, p *Params) (float64, error) {
		switch len(vals) {
		case 1:
			decimals := 0
			if p.Multiply != nil {
				decimals = int(*p.Multiply)
			}
			return Round(vals[0], decimals), nil
		case 2:
			// A second source is taken as the decimals count.
			return Round(vals[0], int(vals[1])), nil
		}
		return 0, fmt.Errorf("round takes 1 or 2 values, got %d", len(vals))
	}},
}

func unary(fn func(float64) float64) numericFunc {
	return func(vals []float64, _ *Params) (float64, error) {
		if len(vals) != 1 {
			return 0, fmt.Errorf("takes 1 value, got %d", len(vals))
		}
		return fn(vals[0]), nil
	}
}

// numericOperation gathers numeric operands from Sources, or from the single
// ContextKey when there are no sources, and applies fn.
func numericOperation(name string, fn numericFunc) func(p *Params, ctx map[string]any) (any, error) {
	return func(p *Params, ctx map[string]any) (any, error) {
		var vals []float64
		switch {
		case len(p.Sources) > 0:
			vals = make([]float64, 0, len(p.Sources))
			for _, src := range p.Sources {
				v, ok := numericSource(ctx, src)
				if !ok {
					return nil, fmt.Errorf("%s: source %q is missing or not numeric: %w", name, src, ErrNoValue)
				}
				vals = append(vals, v)
			}
		case p.ContextKey != "":
			v, ok := numericSource(ctx, p.ContextKey)
			if !ok {
				return nil, fmt.Errorf("%s: %q is missing or not numeric: %w", name, p.ContextKey, ErrNoValue)
			}
			vals = []float64{v}
		default:
			return nil, fmt.Errorf("%s: no sources or context_key: %w", name, ErrNoValue)
		}

		out, err := fn(vals, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if math.IsNaN(out) || math.IsInf(out, 0) {
			return nil, fmt.Errorf("%s: result is not finite: %w", name, ErrNoValue)
		}
		return out, nil
	}
}

func linearTransform(p *Params, ctx map[string]any) (any, error) {
	key := p.ContextKey
	if len(p.Sources) > 0 {
		key = p.Sources[0]
	}
	if key == "" {
		return nil, fmt.Errorf("linear_transform: no source: %w", ErrNoValue)
	}
	v, ok := numericSource(ctx, key)
	if !ok {
		return nil, fmt.Errorf("linear_transform: %q is missing or not numeric: %w", key, ErrNoValue)
	}
	m, d, a := 1.0, 1.0, 0.0
	if p.Multiply != nil {
		m = *p.Multiply
	}
	if p.Divide != nil {
		d = *p.Divide
	}
	if p.Add != nil {
		a = *p.Add
	}
	if d == 0 {
		return nil, fmt.Errorf("linear_transform: divide is zero: %w", ErrNoValue)
	}
	return v*m/d + a, nil
}

// Round rounds v to the given number of decimals using round-half-even on
// the exact decimal value, so Round(2.675, 2) is 2.67 like the binary value
// suggests. Negative decimals round to tens, hundreds and so on.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if decimals < 0 {
		p := math.Pow(10, float64(-decimals))
		return math.RoundToEven(v/p) * p
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	out, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	return out
}
