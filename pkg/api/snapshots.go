package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tauraamui/framerecorder/pkg/database/models"
	"github.com/tauraamui/framerecorder/pkg/database/repos"
)

const snapshotPathPrefix = "/snapshots/"

type snapshotView struct {
	UUID       string          `json:"uuid"`
	Dir        string          `json:"dir"`
	FrameCount int             `json:"frame_count"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toSnapshotView(s models.Snapshot) snapshotView {
	metadata := json.RawMessage(s.Metadata)
	if len(metadata) == 0 || !json.Valid(metadata) {
		metadata = json.RawMessage("null")
	}
	return snapshotView{
		UUID:       s.UUID,
		Dir:        s.Dir,
		FrameCount: s.FrameCount,
		Metadata:   metadata,
		CreatedAt:  s.CreatedAt,
	}
}

type snapshotsHandler struct {
	snapshots SnapshotLister
}

func (h *snapshotsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := repos.DefaultListLimit
	if v := r.URL.Query().Get("limit"); len(v) > 0 {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	snapshots, err := h.snapshots.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]snapshotView, 0, len(snapshots))
	for _, s := range snapshots {
		views = append(views, toSnapshotView(s))
	}
	writeJSON(w, http.StatusOK, views)
}

// snapshotHandler serves a single index record by uuid.
type snapshotHandler struct {
	snapshots SnapshotLister
}

func (h *snapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	uuid := strings.TrimPrefix(r.URL.Path, snapshotPathPrefix)
	if len(uuid) == 0 || strings.Contains(uuid, "/") {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}

	snapshot, err := h.snapshots.FindByUUID(uuid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repos.ErrSnapshotNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSnapshotView(snapshot))
}
