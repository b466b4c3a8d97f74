// Package app implements the monitoring web server for DiffDrive: a small
// dashboard, a websocket feed of live telemetry, the command endpoint and a
// read API over the recorded runs.
package app

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
	"DiffDrive/internal/store"
)

// Commander accepts commands for the vehicle control loop.
type Commander interface {
	Submit(ctx context.Context, c model.Command) (model.CommandResult, error)
}

// App bundles the HTTP server and its collaborators. Recorder and Commands may be
// nil; the routes that need them then answer 503.
type App struct {
	Recorder *store.Recorder
	Commands Commander
	Parser   parser.Parser
	Hub      *Hub
	Token    string
	Tmpl     *template.Template
	Mux      *http.ServeMux
	Server   *http.Server

	CommandTimeout time.Duration

	mu      sync.Mutex // guards Server and stopped between Start and Stop
	stopped bool
}

// NewApp initializes the web app with the dashboard template and routes.
// p encodes the websocket feed; a nil parser means JSON.
func NewApp(cmds Commander, rec *store.Recorder, p parser.Parser, token string) (*App, error) {
	if p == nil {
		p = parser.NewJSONParser()
	}
	tmpl, err := template.New("dashboard").Funcs(template.FuncMap{
		"year": func() int { return time.Now().Year() },
	}).Parse(dashboardHTML)
	if err != nil {
		return nil, fmt.Errorf("[app] failed to load templates: %w", err)
	}

	a := &App{
		Recorder:       rec,
		Commands:       cmds,
		Parser:         p,
		Hub:            NewHub(p),
		Token:          token,
		Tmpl:           tmpl,
		Mux:            http.NewServeMux(),
		CommandTimeout: 2 * time.Second,
	}
	a.registerRoutes()
	return a, nil
}

// Start launches the web server and blocks until stopped.
func (a *App) Start(addr string) error {
	if addr == "" {
		log.Println("[app] app server not started (empty address)")
		return nil
	}
	if a == nil {
		return fmt.Errorf("[app] Start called on nil receiver")
	}
	if a.Mux == nil {
		return fmt.Errorf("[app] nil HTTP mux, was the App built with NewApp?")
	}

	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.Server = srv
	a.mu.Unlock()

	log.Printf("[app] Web server listening at http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("[app] HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the web server and disconnects websocket clients.
// The recorder is owned by the caller and stays open.
func (a *App) Stop() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	srv := a.Server
	a.stopped = true
	a.mu.Unlock()

	var err error
	if srv != nil {
		log.Println("[app] Shutting down web server...")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err = srv.Shutdown(ctx); err != nil {
			err = fmt.Errorf("[app] HTTP server shutdown error: %w", err)
		} else {
			log.Println("[app] Web server stopped cleanly")
		}
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	return err
}
