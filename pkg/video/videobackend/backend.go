package videobackend

import (
	"context"
	"strings"

	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
)

type Connection interface {
	UUID() string
	Read(videoframe.Frame) error
	IsOpen() bool
	Close() error
}

type Backend interface {
	Connect(context.Context, string) (Connection, error)
	NewFrame() videoframe.Frame
	NewEncoder() videoframe.Encoder
}

const (
	OpenCVName = "opencv"
	MockName   = "mock"
)

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return MockWithOptions(MockOptions{})
}

func MockWithOptions(opts MockOptions) Backend {
	if opts.FPS <= 0 {
		opts.FPS = defaultMockFPS
	}
	return &mockVideoBackend{opts: opts}
}

func Resolve(t string) Backend {
	switch strings.ToLower(t) {
	case MockName:
		return Mock()
	default:
		return Default()
	}
}
