package app

// registerRoutes sets up all HTTP handlers for the application.
func (a *App) registerRoutes() {
	a.Mux.HandleFunc("GET /{$}", a.handleDashboard)
	a.Mux.Handle("GET /ws", a.Hub)

	// API routes
	a.Mux.HandleFunc("POST /api/telemetry", TokenMiddleware(a.Token, a.handleTelemetry))
	a.Mux.HandleFunc("GET /api/latest", a.handleLatest)
	a.Mux.HandleFunc("GET /api/runs", a.handleRuns)
	a.Mux.HandleFunc("GET /api/runs/{id}", a.handleRunSamples)
	a.Mux.HandleFunc("GET /api/path", a.handlePath)
	a.Mux.HandleFunc("POST /control", TokenMiddleware(a.Token, a.handleControl))
}
