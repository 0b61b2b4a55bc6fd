package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/metalagman/gptbench/internal/backend"
	"github.com/metalagman/gptbench/internal/config"
	"github.com/metalagman/gptbench/internal/db"
	"github.com/metalagman/gptbench/internal/normalize"
	"github.com/metalagman/gptbench/internal/suite"
	"github.com/metalagman/gptbench/internal/tools"
)

func openStore(path string) (*db.Store, func(), error) {
	if path == "" {
		return nil, func() {}, fmt.Errorf("no results database configured (output.sqlite)")
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, func() {}, err
	}
	return db.NewStore(conn), func() { _ = conn.Close() }, nil
}

// runLockPath sits next to the results database so runs and prunes exclude
// each other.
func runLockPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "run.lock")
}

func newBackend(cfg config.Config) backend.Backend {
	b := cfg.Backend
	if b.Type == config.BackendOpenAI {
		return backend.NewOpenAI(backend.OpenAIConfig{
			BaseURL:   b.BaseURL,
			APIKey:    b.APIKey,
			APIKeyEnv: b.APIKeyEnv,
			Timeout:   b.TimeoutDuration(),
		}, nil)
	}
	return backend.NewOllama(backend.OllamaConfig{BaseURL: b.BaseURL, Timeout: b.TimeoutDuration()}, nil)
}

// toolbox is the registry plus the normalizer every dispatch goes through.
type toolbox struct {
	reg  *tools.Registry
	norm *normalize.Normalizer
}

func newToolbox(cfg config.Config) (toolbox, error) {
	reg, err := tools.New(tools.Options{
		BaseDir:     cfg.Tools.BaseDir,
		LiveWeather: cfg.Tools.LiveWeather,
		HTTPClient:  &http.Client{Timeout: cfg.Tools.HTTPTimeoutDuration()},
	})
	if err != nil {
		return toolbox{}, fmt.Errorf("build tool registry: %w", err)
	}
	return toolbox{reg: reg, norm: normalize.New(reg)}, nil
}

func (t toolbox) signatures() []string {
	specs := t.reg.Specs()
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Signature())
	}
	return out
}

// loadSuite returns the configured YAML suite of mode, or the built-in one.
func loadSuite(cfg config.Config, mode suite.Mode) (suite.Suite, error) {
	if path := cfg.Suites.Path(mode); path != "" {
		s, err := suite.LoadFile(path, mode)
		if err != nil {
			return suite.Suite{}, err
		}
		if s.Mode != mode {
			return suite.Suite{}, fmt.Errorf("suite %s is a %s suite, configured for %s", path, s.Mode, mode)
		}
		return s, nil
	}
	return suite.Builtin(mode)
}

func modeNames(modes []suite.Mode) []string {
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, string(m))
	}
	return out
}
