package tools

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

const isoSeconds = "2006-01-02T15:04:05"

// zoneOffsets lists the fixed UTC offsets, in hours, of abbreviations models use.
var zoneOffsets = map[string]float64{
	"UTC": 0, "GMT": 0,
	"EST": -5, "EDT": -4,
	"CST": -6, "CDT": -5,
	"MST": -7, "MDT": -6,
	"PST": -8, "PDT": -7,
	"CET": 1, "CEST": 2,
	"IST": 5.5, "JST": 9,
	"AEST": 10, "AEDT": 11,
}

var dateLayouts = []string{
	"2006-01-02",
	isoSeconds,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

type currentTimeArgs struct {
	Timezone string `mapstructure:"timezone"`
}

type dateCalcArgs struct {
	StartDate      string `mapstructure:"start_date"`
	DaysToAdd      int    `mapstructure:"days_to_add"`
	DaysToSubtract int    `mapstructure:"days_to_subtract"`
}

type tzConvertArgs struct {
	TimeStr string `mapstructure:"time_str"`
	FromTZ  string `mapstructure:"from_tz"`
	ToTZ    string `mapstructure:"to_tz"`
}

func (r *Registry) registerTime() error {
	const category = "time"
	if err := r.Register(Spec{
		Name: "current_time", Category: category, Description: "Current date and time in a zone.",
		Params: []Param{{Name: "timezone", Type: TypeString, Default: "UTC"}},
	}, typed(r.currentTime)); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "date_calculator", Category: category, Description: "Add or subtract days from a date.",
		Params: []Param{
			{Name: "start_date", Type: TypeString, Description: "defaults to today"},
			{Name: "days_to_add", Type: TypeInteger, Default: 0},
			{Name: "days_to_subtract", Type: TypeInteger, Default: 0},
		},
	}, typed(r.dateCalculator)); err != nil {
		return err
	}
	return r.Register(Spec{
		Name: "timezone_converter", Category: category, Description: "Convert an HH:MM time between zones.",
		Params: []Param{
			{Name: "time_str", Type: TypeString, Required: true},
			{Name: "from_tz", Type: TypeString, Required: true},
			{Name: "to_tz", Type: TypeString, Required: true},
		},
	}, typed(timezoneConvert))
}

func zone(name string) (*time.Location, string, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		key = "UTC"
	}
	if hours, ok := zoneOffsets[key]; ok {
		return time.FixedZone(key, int(hours*3600)), key, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, "", fmt.Errorf("unknown timezone %q", name)
	}
	return loc, loc.String(), nil
}

func (r *Registry) currentTime(_ context.Context, in currentTimeArgs) (map[string]any, error) {
	loc, name, err := zone(in.Timezone)
	if err != nil {
		return nil, err
	}
	now := r.now().In(loc)
	return map[string]any{
		"timezone":  name,
		"datetime":  now.Format(isoSeconds),
		"date":      now.Format("2006-01-02"),
		"time":      now.Format("15:04:05"),
		"weekday":   now.Weekday().String(),
		"unix":      now.Unix(),
		"formatted": now.Format("Monday, January 02, 2006 03:04 PM"),
	}, nil
}

func (r *Registry) dateCalculator(_ context.Context, in dateCalcArgs) (map[string]any, error) {
	start := r.now()
	if s := strings.TrimSpace(in.StartDate); s != "" && !strings.EqualFold(s, "today") {
		parsed, err := parseDate(s)
		if err != nil {
			return nil, err
		}
		start = parsed
	}
	delta := in.DaysToAdd - in.DaysToSubtract
	result := start.AddDate(0, 0, delta)
	return map[string]any{
		"start_date":      start.Format(isoSeconds),
		"result_date":     result.Format(isoSeconds),
		"formatted":       result.Format("January 02, 2006"),
		"weekday":         result.Weekday().String(),
		"days_difference": delta,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q, use YYYY-MM-DD", s)
}

func timezoneConvert(_ context.Context, in tzConvertArgs) (map[string]any, error) {
	from, fromName, err := zone(in.FromTZ)
	if err != nil {
		return nil, err
	}
	to, toName, err := zone(in.ToTZ)
	if err != nil {
		return nil, err
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(in.TimeStr))
	if err != nil {
		return nil, fmt.Errorf("time_str must be HH:MM: %q", in.TimeStr)
	}
	// anchor on a fixed date so named zones resolve to a deterministic offset
	src := time.Date(2024, time.January, 15, clock.Hour(), clock.Minute(), 0, 0, from)
	dst := src.In(to)
	_, fromOff := src.Zone()
	_, toOff := dst.Zone()
	dayShift := ""
	switch {
	case dst.Day() > src.Day():
		dayShift = "next day"
	case dst.Day() < src.Day():
		dayShift = "previous day"
	}
	out := map[string]any{
		"original_time":  src.Format("15:04"),
		"from_tz":        fromName,
		"to_tz":          toName,
		"converted_time": dst.Format("15:04"),
		"offset_hours":   math.Round(float64(toOff-fromOff)/3600*100) / 100,
	}
	if dayShift != "" {
		out["day_change"] = dayShift
	}
	return out, nil
}
