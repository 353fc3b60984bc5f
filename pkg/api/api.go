// Package api exposes the recorder over HTTP: the save trigger, the
// snapshot index, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/tauraamui/framerecorder/pkg/database/models"
	"github.com/tauraamui/framerecorder/pkg/log"
)

type Saver interface {
	Save(ctx context.Context, metadata json.RawMessage) (int, error)
}

type SnapshotLister interface {
	List(limit int) ([]models.Snapshot, error)
	FindByUUID(uuid string) (models.Snapshot, error)
}

type Health struct {
	Ingest   string `json:"ingest"`
	Buffered int    `json:"buffered"`
	Capacity int    `json:"capacity"`
}

// Options wires the handlers to the recorder. Snapshots, Health and
// Metrics are optional, their routes are not served when unset.
type Options struct {
	Saver     Saver
	Snapshots SnapshotLister
	Health    func() Health
	Metrics   http.Handler
}

func NewHandler(opts Options) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/save_frames", &saveFramesHandler{saver: opts.Saver})
	if opts.Snapshots != nil {
		mux.Handle("/snapshots", &snapshotsHandler{snapshots: opts.Snapshots})
		mux.Handle(snapshotPathPrefix, &snapshotHandler{snapshots: opts.Snapshots})
	}
	if opts.Health != nil {
		mux.Handle("/healthz", &healthHandler{health: opts.Health})
	}
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)
	return handlers.CombinedLoggingHandler(accessLog{}, recovery(mux))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js) //nolint
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// accessLog routes the combined log lines into debug logging.
type accessLog struct{}

func (accessLog) Write(p []byte) (int, error) {
	log.Debug("%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("Recovered from panic serving request: %s", strings.TrimSpace(fmt.Sprintln(v...)))
}
