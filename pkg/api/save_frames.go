package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/tauraamui/framerecorder/pkg/snapshot"
	"github.com/tauraamui/xerror"
)

type saveFramesResponse struct {
	SavedFrames int `json:"saved_frames"`
}

type saveFramesHandler struct {
	saver Saver
}

func (h *saveFramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	metadata, err := readMetadata(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.saver.Save(r.Context(), metadata)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, snapshot.ErrDestinationCollision) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, saveFramesResponse{SavedFrames: count})
}

// readMetadata accepts any single JSON value and hands back the body
// untouched. An empty body is null.
func readMetadata(body io.Reader) (json.RawMessage, error) {
	content, err := ioutil.ReadAll(body)
	if err != nil {
		return nil, xerror.Errorf("unable to read metadata: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(content) {
		return nil, xerror.New("invalid metadata JSON")
	}
	return json.RawMessage(content), nil
}
