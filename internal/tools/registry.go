// Package tools implements the registry of named operations the benchmark exposes to
// models: simulated weather, math, user directory, messaging, file system, network,
// security and date helpers.
package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Handler runs a tool with schema-valid arguments.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Options configures a Registry.
type Options struct {
	// BaseDir resolves relative paths of file tools. Defaults to the working directory.
	BaseDir string
	// LiveWeather queries wttr.in before falling back to simulated weather.
	LiveWeather bool
	// HTTPClient is used by fetch_url and live weather.
	HTTPClient *http.Client
	// Now and Source make time and randomness deterministic in tests.
	Now    func() time.Time
	Source rand.Source
}

type entry struct {
	spec    Spec
	schema  *gojsonschema.Schema
	handler Handler
}

// Registry maps tool names to typed handlers. It owns the mock user store, so state
// created by one call (create_user) is visible to later calls on the same registry.
type Registry struct {
	tools   map[string]entry
	aliases map[string]string
	users   *UserStore

	baseDir     string
	liveWeather bool
	http        *http.Client
	now         func() time.Time
	rand        *rand.Rand
}

// defaultAliases maps alternate names small models use onto registered tools.
var defaultAliases = map[string]string{
	"create_folder":   "create_directory",
	"mkdir":           "create_directory",
	"get_temperature": "get_weather",
	"email":           "send_email",
	"calc":            "calculator",
}

// New builds a registry with every tool registered and a freshly seeded user store.
func New(opts Options) (*Registry, error) {
	r := &Registry{
		tools:       map[string]entry{},
		aliases:     map[string]string{},
		users:       NewUserStore(),
		baseDir:     opts.BaseDir,
		liveWeather: opts.LiveWeather,
		http:        opts.HTTPClient,
		now:         opts.Now,
	}
	if r.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			r.baseDir = wd
		}
	}
	if r.http == nil {
		r.http = &http.Client{Timeout: 30 * time.Second}
	}
	if r.now == nil {
		r.now = time.Now
	}
	src := opts.Source
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	r.rand = rand.New(&lockedSource{src: src})

	for _, register := range []func() error{
		r.registerWeather,
		r.registerMath,
		r.registerUsers,
		r.registerComms,
		r.registerFiles,
		r.registerNetwork,
		r.registerSecurity,
		r.registerTime,
	} {
		if err := register(); err != nil {
			return nil, err
		}
	}
	for alias, target := range defaultAliases {
		if err := r.Alias(alias, target); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be unique across tools and aliases.
func (r *Registry) Register(spec Spec, handler Handler) error {
	if spec.Name == "" {
		return errors.New("tool name is required")
	}
	if _, dup := r.tools[spec.Name]; dup {
		return fmt.Errorf("tool %q already registered", spec.Name)
	}
	if _, dup := r.aliases[spec.Name]; dup {
		return fmt.Errorf("tool %q shadows an alias", spec.Name)
	}
	schema, err := compileSchema(spec)
	if err != nil {
		return err
	}
	r.tools[spec.Name] = entry{spec: spec, schema: schema, handler: handler}
	return nil
}

// Alias makes alias resolve to the registered tool target.
func (r *Registry) Alias(alias, target string) error {
	if _, ok := r.tools[target]; !ok {
		return fmt.Errorf("alias %q targets unknown tool %q", alias, target)
	}
	if _, clash := r.tools[alias]; clash {
		return fmt.Errorf("alias %q clashes with a tool", alias)
	}
	r.aliases[alias] = target
	return nil
}

// Resolve returns the canonical tool name for name or one of its aliases.
func (r *Registry) Resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if _, ok := r.tools[name]; ok {
		return name, true
	}
	if target, ok := r.aliases[name]; ok {
		return target, true
	}
	return "", false
}

// Spec returns the declaration of a tool, resolving aliases.
func (r *Registry) Spec(name string) (Spec, bool) {
	canonical, ok := r.Resolve(name)
	if !ok {
		return Spec{}, false
	}
	return r.tools[canonical].spec, true
}

// Specs returns every declaration sorted by name.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.tools))
	for _, e := range r.tools {
		specs = append(specs, e.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Names returns the registered tool names sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.tools))
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	return maps.Clone(r.aliases)
}

// Users exposes the registry's mock user store.
func (r *Registry) Users() *UserStore {
	return r.users
}

// Execute dispatches name with args. It never panics and never returns a Go error:
// unknown tools, schema violations and handler failures come back as an error-tagged
// Result so callers can fold them into a conversation and carry on.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (res Result) {
	canonical, ok := r.Resolve(name)
	if !ok {
		return Result{Tool: name, Err: &NotFoundError{Name: name}}
	}
	e := r.tools[canonical]
	res.Tool = canonical

	if args == nil {
		args = map[string]any{}
	}
	if reason, valid := validateArgs(e.schema, args); !valid {
		res.Err = &InvalidArgumentsError{Tool: canonical, Reason: reason}
		return res
	}

	full := withDefaults(e.spec, args)
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("tool", canonical).Interface("panic", p).Msg("tool handler panicked")
			res.Data = nil
			res.Err = fmt.Errorf("tool %s failed: %v", canonical, p)
		}
	}()

	data, err := e.handler(ctx, full)
	if err != nil {
		var decodeErr *decodeError
		if errors.As(err, &decodeErr) {
			res.Err = &InvalidArgumentsError{Tool: canonical, Reason: decodeErr.Error()}
			return res
		}
		res.Err = err
		return res
	}
	res.Data = data
	return res
}

func withDefaults(spec Spec, args map[string]any) map[string]any {
	full := maps.Clone(args)
	for _, p := range spec.Params {
		if _, ok := full[p.Name]; !ok && p.Default != nil {
			full[p.Name] = p.Default
		}
	}
	return full
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

// typed adapts a handler taking a decoded argument struct.
func typed[T any](fn func(ctx context.Context, in T) (map[string]any, error)) Handler {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		var in T
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &in,
			WeaklyTypedInput: true,
			TagName:          "mapstructure",
		})
		if err != nil {
			return nil, fmt.Errorf("build decoder: %w", err)
		}
		if err := dec.Decode(args); err != nil {
			return nil, &decodeError{err: err}
		}
		return fn(ctx, in)
	}
}

func (r *Registry) timestamp() string {
	return r.now().Format("2006-01-02T15:04:05.000000")
}

// lockedSource serializes a rand.Source; handlers may run concurrently.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// between returns a uniformly random int in [lo, hi].
func (r *Registry) between(lo, hi int) int {
	return lo + r.rand.IntN(hi-lo+1)
}
