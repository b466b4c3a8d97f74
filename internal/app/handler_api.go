package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
	"DiffDrive/internal/store"
)

const maxBody = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[app] warning: failed to write response: %v", err)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if cerr := r.Body.Close(); cerr != nil {
		log.Printf("[app] warning: failed to close body: %v", cerr)
	}
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// handleTelemetry accepts a snapshot forwarded by a ground station, as JSON or
// CSV, then records and broadcasts it.
func (a *App) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	t, err := parser.NewJSONParser().DecodeTelemetry(string(body))
	if err != nil {
		t, err = parser.NewCSVParser().DecodeTelemetry(strings.TrimSpace(string(body)))
		if err != nil {
			http.Error(w, "invalid telemetry", http.StatusBadRequest)
			return
		}
	}
	if a.Recorder != nil {
		if err := a.Recorder.Append(t); err != nil {
			http.Error(w, "failed to save telemetry", http.StatusInternalServerError)
			return
		}
	}
	a.Hub.Publish(t)
	w.WriteHeader(http.StatusOK)
}

// handleLatest returns the newest snapshot of the current run.
func (a *App) handleLatest(w http.ResponseWriter, r *http.Request) {
	if a.Recorder == nil {
		http.Error(w, "recording disabled", http.StatusServiceUnavailable)
		return
	}
	t, err := a.Recorder.Latest(r.URL.Query().Get("run"))
	switch {
	case errors.Is(err, store.ErrNoRun), errors.Is(err, store.ErrEmpty):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, "failed to read telemetry", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, t)
	}
}

// handleRuns lists the recorded runs.
func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	if a.Recorder == nil {
		http.Error(w, "recording disabled", http.StatusServiceUnavailable)
		return
	}
	runs, err := a.Recorder.Runs()
	if err != nil {
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunSamples returns the snapshots of one run, optionally windowed by
// the from/to tick query parameters.
func (a *App) handleRunSamples(w http.ResponseWriter, r *http.Request) {
	if a.Recorder == nil {
		http.Error(w, "recording disabled", http.StatusServiceUnavailable)
		return
	}
	var bounds [2]uint64
	for i, name := range []string{"from", "to"} {
		s := r.URL.Query().Get(name)
		if s == "" {
			continue
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			http.Error(w, "invalid "+name, http.StatusBadRequest)
			return
		}
		bounds[i] = v
	}
	samples, err := a.Recorder.Samples(r.PathValue("id"), bounds[0], bounds[1])
	switch {
	case errors.Is(err, store.ErrNoRun):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, "failed to read run", http.StatusInternalServerError)
	default:
		if samples == nil {
			samples = []model.Telemetry{}
		}
		writeJSON(w, http.StatusOK, samples)
	}
}

// decodeCommand reads a JSON command or, for any other content type, the
// console form ("create 2 0 90").
func decodeCommand(r *http.Request, body []byte) (model.Command, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return parser.NewJSONParser().DecodeCommand(string(body))
	}
	return parser.ParseCommand(string(body))
}

func (a *App) submit(ctx context.Context, c model.Command) (model.CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.CommandTimeout)
	defer cancel()
	return a.Commands.Submit(ctx, c)
}

// handleControl delivers a command to the control loop and returns its result.
func (a *App) handleControl(w http.ResponseWriter, r *http.Request) {
	if a.Commands == nil {
		http.Error(w, "no vehicle attached", http.StatusServiceUnavailable)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	c, err := decodeCommand(r, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := a.submit(r.Context(), c)
	if err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	log.Printf("[app] control %s -> finished=%t", parser.FormatCommand(c), res.Finished)
	writeJSON(w, http.StatusOK, res)
}

// handlePath returns the current trajectory as [{x,y,angle}].
func (a *App) handlePath(w http.ResponseWriter, r *http.Request) {
	if a.Commands == nil {
		http.Error(w, "no vehicle attached", http.StatusServiceUnavailable)
		return
	}
	res, err := a.submit(r.Context(), model.Command{Kind: model.CmdFetch})
	if err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := io.WriteString(w, res.Message); err != nil {
		log.Printf("[app] warning: failed to write path: %v", err)
	}
}
