package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var weatherConditions = []string{"sunny", "cloudy", "rainy", "clear", "partly cloudy", "mist", "overcast", "stormy"}

var forecastConditions = []string{"sunny", "cloudy", "rainy", "partly cloudy", "clear"}

type aqiBand struct {
	label     string
	low, high int
}

var aqiBands = []aqiBand{
	{"good", 0, 50},
	{"moderate", 51, 100},
	{"unhealthy sensitive", 101, 150},
	{"unhealthy", 151, 200},
	{"very unhealthy", 201, 300},
	{"hazardous", 301, 500},
}

type weatherArgs struct {
	Location string `mapstructure:"location"`
	Unit     string `mapstructure:"unit"`
}

type forecastArgs struct {
	Location string `mapstructure:"location"`
	Days     int    `mapstructure:"days"`
}

type airQualityArgs struct {
	City string `mapstructure:"city"`
}

func (r *Registry) registerWeather() error {
	const category = "weather"
	if err := r.Register(Spec{
		Name: "get_weather", Category: category, Description: "Current weather for a location.",
		Params: []Param{
			{Name: "location", Type: TypeString, Required: true},
			{Name: "unit", Type: TypeString, Default: "celsius", Description: "celsius or fahrenheit"},
		},
	}, typed(r.weather)); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "get_forecast", Category: category, Description: "Multi-day forecast (simulated).",
		Params: []Param{
			{Name: "location", Type: TypeString, Required: true},
			{Name: "days", Type: TypeInteger, Default: 5},
		},
	}, typed(r.forecast)); err != nil {
		return err
	}
	return r.Register(Spec{
		Name: "get_air_quality", Category: category, Description: "Air quality index (simulated).",
		Params: []Param{{Name: "city", Type: TypeString, Required: true}},
	}, typed(r.airQuality))
}

func (r *Registry) weather(ctx context.Context, in weatherArgs) (map[string]any, error) {
	unit := strings.ToLower(in.Unit)
	if r.liveWeather {
		live, err := r.liveWeatherLookup(ctx, in.Location, unit)
		if err == nil {
			return live, nil
		}
		log.Debug().Err(err).Str("location", in.Location).Msg("live weather unavailable, simulating")
	}

	tempC := r.between(-5, 35)
	temperature := fmt.Sprintf("%d°C", tempC)
	if unit == "fahrenheit" {
		temperature = fmt.Sprintf("%d°F", tempC*9/5+32)
	}
	return map[string]any{
		"location":    in.Location,
		"temperature": temperature,
		"condition":   weatherConditions[r.rand.IntN(len(weatherConditions))],
		"wind":        fmt.Sprintf("%d km/h", r.between(5, 30)),
		"humidity":    fmt.Sprintf("%d%%", r.between(30, 95)),
		"unit":        unit,
		"source":      "simulated",
		"timestamp":   r.timestamp(),
	}, nil
}

// liveWeatherLookup queries wttr.in's one-line format: "<temp> <condition...> <wind> <humidity>".
func (r *Registry) liveWeatherLookup(ctx context.Context, location, unit string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("https://wttr.in/%s?format=%%t+%%C+%%w+%%h", url.PathEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wttr.in status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(string(body))
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty wttr.in response")
	}
	out := map[string]any{
		"location":    location,
		"temperature": parts[0],
		"condition":   "unknown",
		"wind":        "?",
		"humidity":    "?",
		"unit":        unit,
		"source":      "wttr.in",
		"timestamp":   r.timestamp(),
	}
	if len(parts) > 3 {
		out["condition"] = strings.Join(parts[1:len(parts)-2], " ")
	}
	if len(parts) > 2 {
		out["wind"] = parts[len(parts)-2]
	}
	if len(parts) > 1 {
		out["humidity"] = parts[len(parts)-1]
	}
	return out, nil
}

func (r *Registry) forecast(_ context.Context, in forecastArgs) (map[string]any, error) {
	if in.Days < 0 {
		return nil, fmt.Errorf("days must not be negative")
	}
	days := make([]map[string]any, 0, in.Days)
	now := r.now()
	for i := range in.Days {
		days = append(days, map[string]any{
			"date":             now.AddDate(0, 0, i+1).Format("2006-01-02"),
			"temperature_high": fmt.Sprintf("%d°C", r.between(15, 30)),
			"temperature_low":  fmt.Sprintf("%d°C", r.between(5, 15)),
			"condition":        forecastConditions[r.rand.IntN(len(forecastConditions))],
			"precipitation":    fmt.Sprintf("%d%%", r.between(0, 80)),
		})
	}
	return map[string]any{
		"location":  in.Location,
		"forecast":  days,
		"days":      in.Days,
		"timestamp": r.timestamp(),
	}, nil
}

func (r *Registry) airQuality(_ context.Context, in airQualityArgs) (map[string]any, error) {
	aqi := r.between(20, 200)
	status := aqiBands[len(aqiBands)-1].label
	for _, band := range aqiBands {
		if aqi >= band.low && aqi <= band.high {
			status = band.label
			break
		}
	}
	names := []string{"pm2.5", "pm10", "o3", "no2", "so2"}
	ranges := [][2]int{{5, 50}, {10, 100}, {10, 100}, {5, 60}, {1, 30}}
	pollutants := make(map[string]any, len(names))
	dominant, peak := "", -1
	for i, name := range names {
		v := r.between(ranges[i][0], ranges[i][1])
		pollutants[name] = v
		if v > peak {
			dominant, peak = name, v
		}
	}
	return map[string]any{
		"city":               in.City,
		"aqi":                aqi,
		"status":             status,
		"pollutants":         pollutants,
		"dominant_pollutant": dominant,
		"timestamp":          r.timestamp(),
	}, nil
}
