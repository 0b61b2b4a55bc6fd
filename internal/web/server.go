// Package web serves a read-only HTML view of benchmark runs stored in SQLite.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/gptbench/internal/db"
)

// Runs is the read side of the results store.
type Runs interface {
	ListRuns(ctx context.Context, limit int) ([]db.RunRecord, error)
	GetRun(ctx context.Context, runID string) (db.RunRecord, bool, error)
	Summaries(ctx context.Context, runID string) ([]db.SummaryRecord, error)
	Results(ctx context.Context, runID string) ([]db.ResultRecord, error)
	Events(ctx context.Context, runID string) ([]db.Event, error)
}

const listLimit = 100

//go:embed templates/*.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"pct":   func(v float64) string { return formatFloat(v, 2) + "%" },
	"secs":  func(v float64) string { return formatFloat(v, 2) + "s" },
	"lower": strings.ToLower,
}

// Server provides the web UI handlers.
type Server struct {
	runs  Runs
	index *template.Template
	run   *template.Template
}

// NewServer parses the embedded templates.
func NewServer(runs Runs) (*Server, error) {
	index, err := template.New("index.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/index.html")
	if err != nil {
		return nil, err
	}
	run, err := template.New("run.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/run.html")
	if err != nil {
		return nil, err
	}
	return &Server{runs: runs, index: index, run: run}, nil
}

// Routes returns the router for the web UI.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.ListRuns(r.Context(), listLimit)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.render(w, s.index, runs)
}

type runPage struct {
	Run       db.RunRecord
	Summaries []db.SummaryRecord
	Results   []db.ResultRecord
	Events    []db.Event
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	run, ok, err := s.runs.GetRun(ctx, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	page := runPage{Run: run}
	if page.Summaries, err = s.runs.Summaries(ctx, id); err != nil {
		s.fail(w, err)
		return
	}
	if page.Results, err = s.runs.Results(ctx, id); err != nil {
		s.fail(w, err)
		return
	}
	if page.Events, err = s.runs.Events(ctx, id); err != nil {
		s.fail(w, err)
		return
	}
	s.render(w, s.run, page)
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Error().Err(err).Str("template", tmpl.Name()).Msg("render page")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("web request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
