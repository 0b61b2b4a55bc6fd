package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

type calculatorArgs struct {
	Expression string `mapstructure:"expression"`
}

type convertArgs struct {
	Value    float64 `mapstructure:"value"`
	FromUnit string  `mapstructure:"from_unit"`
	ToUnit   string  `mapstructure:"to_unit"`
}

type randomArgs struct {
	MinVal int `mapstructure:"min_val"`
	MaxVal int `mapstructure:"max_val"`
}

type statsArgs struct {
	Numbers any `mapstructure:"numbers"`
}

func (r *Registry) registerMath() error {
	const category = "math"
	if err := r.Register(Spec{
		Name: "calculator", Category: category, Description: "Evaluate a math expression.",
		Params: []Param{{Name: "expression", Type: TypeString, Required: true}},
	}, typed(func(_ context.Context, in calculatorArgs) (map[string]any, error) {
		return calculate(in.Expression), nil
	})); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "convert_units", Category: category, Description: "Convert length, weight, temperature or volume.",
		Params: []Param{
			{Name: "value", Type: TypeNumber, Required: true},
			{Name: "from_unit", Type: TypeString, Required: true},
			{Name: "to_unit", Type: TypeString, Required: true},
		},
	}, typed(func(_ context.Context, in convertArgs) (map[string]any, error) {
		return convertUnits(in.Value, in.FromUnit, in.ToUnit), nil
	})); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "generate_random_number", Category: category, Description: "Random integer in [min_val, max_val].",
		Params: []Param{
			{Name: "min_val", Type: TypeInteger, Default: 0},
			{Name: "max_val", Type: TypeInteger, Default: 100},
		},
	}, typed(func(_ context.Context, in randomArgs) (map[string]any, error) {
		if in.MinVal > in.MaxVal {
			return nil, fmt.Errorf("min_val %d exceeds max_val %d", in.MinVal, in.MaxVal)
		}
		return map[string]any{
			"min":       in.MinVal,
			"max":       in.MaxVal,
			"random":    r.between(in.MinVal, in.MaxVal),
			"timestamp": r.timestamp(),
		}, nil
	})); err != nil {
		return err
	}
	return r.Register(Spec{
		Name: "calculate_stats", Category: category, Description: "Descriptive statistics for a list of numbers.",
		Params: []Param{{Name: "numbers", Type: TypeNumberList, Required: true, Description: "list or comma-separated string"}},
	}, typed(func(_ context.Context, in statsArgs) (map[string]any, error) {
		nums, err := ParseNumberList(in.Numbers)
		if err != nil {
			return nil, err
		}
		return stats(nums), nil
	}))
}

type mathFunc = func(params ...any) (any, error)

var calcOptions = func() []expr.Option {
	fns := map[string]mathFunc{
		"sqrt":  unary(math.Sqrt),
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"tan":   unary(math.Tan),
		"asin":  unary(math.Asin),
		"acos":  unary(math.Acos),
		"atan":  unary(math.Atan),
		"exp":   unary(math.Exp),
		"log10": unary(math.Log10),
		"log2":  unary(math.Log2),
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"abs":   unary(math.Abs),
		"pow":   binary(math.Pow),
		"log":   logFn,
		"round": roundFn,
		"min":   fold(math.Min),
		"max":   fold(math.Max),
		"sum":   sumFn,
	}
	opts := []expr.Option{expr.Env(calcEnv()), expr.DisableAllBuiltins()}
	for name, fn := range fns {
		opts = append(opts, expr.Function(name, fn))
	}
	return opts
}()

func calcEnv() map[string]any {
	return map[string]any{"pi": math.Pi, "e": math.E}
}

// calculate evaluates expression in a sandbox exposing only math helpers and the
// constants pi and e. Failures are reported in the result, like any tool-level error.
func calculate(expression string) map[string]any {
	fail := func(err error) map[string]any {
		return map[string]any{"expression": expression, "error": err.Error(), "status": "error"}
	}
	program, err := expr.Compile(expression, calcOptions...)
	if err != nil {
		return fail(err)
	}
	out, err := expr.Run(program, calcEnv())
	if err != nil {
		return fail(err)
	}
	switch v := out.(type) {
	case int:
		out = int64(v)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fail(errors.New("math domain error"))
		}
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			out = int64(v)
		}
	}
	return map[string]any{"expression": expression, "result": out, "status": "success"}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
}

func unary(fn func(float64) float64) mathFunc {
	return func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func binary(fn func(float64, float64) float64) mathFunc {
	return func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(params))
		}
		a, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		b, err := toFloat(params[1])
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}
}

func flatten(params []any) ([]float64, error) {
	var out []float64
	for _, p := range params {
		if list, ok := p.([]any); ok {
			inner, err := flatten(list)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
			continue
		}
		f, err := toFloat(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func fold(fn func(float64, float64) float64) mathFunc {
	return func(params ...any) (any, error) {
		nums, err := flatten(params)
		if err != nil {
			return nil, err
		}
		if len(nums) == 0 {
			return nil, errors.New("expected at least 1 argument")
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			acc = fn(acc, n)
		}
		return acc, nil
	}
}

func sumFn(params ...any) (any, error) {
	nums, err := flatten(params)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total, nil
}

func logFn(params ...any) (any, error) {
	nums, err := flatten(params)
	if err != nil {
		return nil, err
	}
	switch len(nums) {
	case 1:
		return math.Log(nums[0]), nil
	case 2:
		return math.Log(nums[0]) / math.Log(nums[1]), nil
	default:
		return nil, fmt.Errorf("expected 1 or 2 arguments, got %d", len(nums))
	}
}

func roundFn(params ...any) (any, error) {
	nums, err := flatten(params)
	if err != nil {
		return nil, err
	}
	switch len(nums) {
	case 1:
		return math.RoundToEven(nums[0]), nil
	case 2:
		return roundTo(nums[0], int(nums[1])), nil
	default:
		return nil, fmt.Errorf("expected 1 or 2 arguments, got %d", len(nums))
	}
}

func roundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

type conversion struct{ from, to string }

var conversions = map[conversion]func(float64) float64{
	{"meters", "feet"}:        func(x float64) float64 { return x * 3.28084 },
	{"feet", "meters"}:        func(x float64) float64 { return x / 3.28084 },
	{"kilometers", "miles"}:   func(x float64) float64 { return x * 0.621371 },
	{"miles", "kilometers"}:   func(x float64) float64 { return x / 0.621371 },
	{"inches", "cm"}:          func(x float64) float64 { return x * 2.54 },
	{"cm", "inches"}:          func(x float64) float64 { return x / 2.54 },
	{"kg", "lbs"}:             func(x float64) float64 { return x * 2.20462 },
	{"lbs", "kg"}:             func(x float64) float64 { return x / 2.20462 },
	{"celsius", "fahrenheit"}: func(x float64) float64 { return x*9/5 + 32 },
	{"fahrenheit", "celsius"}: func(x float64) float64 { return (x - 32) * 5 / 9 },
	{"liters", "gallons"}:     func(x float64) float64 { return x * 0.264172 },
	{"gallons", "liters"}:     func(x float64) float64 { return x / 0.264172 },
}

// unitNames folds abbreviations and singular forms onto the table's unit names.
var unitNames = map[string]string{
	"m": "meters", "meter": "meters", "metre": "meters", "metres": "meters",
	"ft": "feet", "foot": "feet",
	"km": "kilometers", "kilometer": "kilometers", "kilometre": "kilometers", "kilometres": "kilometers",
	"mi": "miles", "mile": "miles",
	"in": "inches", "inch": "inches",
	"centimeter": "cm", "centimeters": "cm", "centimetre": "cm", "centimetres": "cm",
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg",
	"lb": "lbs", "pound": "lbs", "pounds": "lbs",
	"c": "celsius", "°c": "celsius",
	"f": "fahrenheit", "°f": "fahrenheit",
	"l": "liters", "liter": "liters", "litre": "liters", "litres": "liters",
	"gal": "gallons", "gallon": "gallons",
}

func canonicalUnit(unit string) string {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if name, ok := unitNames[unit]; ok {
		return name
	}
	return unit
}

func convertUnits(value float64, from, to string) map[string]any {
	fn, ok := conversions[conversion{canonicalUnit(from), canonicalUnit(to)}]
	if !ok {
		return map[string]any{
			"error":  fmt.Sprintf("Conversion from %s to %s not supported", from, to),
			"status": "error",
		}
	}
	return map[string]any{
		"value":     value,
		"from_unit": from,
		"to_unit":   to,
		"result":    roundTo(fn(value), 4),
		"status":    "success",
	}
}

// ParseNumberList accepts a JSON list of numbers or numeric strings, or a
// comma-separated string.
func ParseNumberList(v any) ([]float64, error) {
	switch list := v.(type) {
	case []float64:
		return slices.Clone(list), nil
	case []any:
		out := make([]float64, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err != nil {
					return nil, fmt.Errorf("%q is not a number", s)
				}
				out = append(out, f)
				continue
			}
			f, err := toFloat(item)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	case string:
		var out []float64
		for _, field := range strings.Split(list, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", field)
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("numbers must be a list or a comma-separated string")
	}
}

func stats(nums []float64) map[string]any {
	n := len(nums)
	if n == 0 {
		return map[string]any{"error": "Empty list"}
	}
	sorted := slices.Clone(nums)
	slices.Sort(sorted)

	sum := 0.0
	for _, x := range sorted {
		sum += x
	}
	mean := sum / float64(n)
	variance := 0.0
	for _, x := range sorted {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(n)

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	mode, best := sorted[0], 0
	for i := 0; i < n; {
		j := i
		for j < n && sorted[j] == sorted[i] {
			j++
		}
		if j-i > best {
			mode, best = sorted[i], j-i
		}
		i = j
	}

	return map[string]any{
		"count":         n,
		"sum":           sum,
		"mean":          roundTo(mean, 4),
		"median":        median,
		"mode":          mode,
		"min":           sorted[0],
		"max":           sorted[n-1],
		"range":         sorted[n-1] - sorted[0],
		"variance":      roundTo(variance, 4),
		"std_deviation": roundTo(math.Sqrt(variance), 4),
	}
}
