package configdef

import (
	"fmt"
	"strings"

	"gopkg.in/dealancer/validate.v2"
)

type Values struct {
	Debug bool `json:"debug"`
	// RootDir is where snapshot directories are created.
	RootDir string `json:"root" validate:"empty=false"`
	// Video is the stream source address handed to the backend.
	Video      string `json:"video" validate:"empty=false"`
	NumFrames  int    `json:"num_frames" validate:"gte=1 & lte=100000"`
	ListenAddr string `json:"listen_address" validate:"empty=false"`
	Backend    string `json:"backend"`
	MockFPS    int    `json:"mock_fps" validate:"gte=0 & lte=240"`
	// IndexPath is the snapshot index database, empty resolves to the
	// user cache dir.
	IndexPath    string `json:"index_path"`
	DisableIndex bool   `json:"disable_index"`
}

var knownBackends = []string{"", "opencv", "mock"}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.validateBackend()
}

func (v Values) validateBackend() error {
	const validationErrorHeader = "validation failed: %w"
	for _, b := range knownBackends {
		if strings.EqualFold(v.Backend, b) {
			return nil
		}
	}
	return fmt.Errorf(validationErrorHeader, fmt.Errorf("unknown video backend %q", v.Backend))
}
