package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/framerecorder/pkg/video/videobackend"
	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

// Connection is an ordered source of raw frames. Read returns an error
// once the source is exhausted or broken, the two are not told apart.
type Connection interface {
	UUID() string
	Title() string
	Read() (videoframe.Frame, error)
	IsOpen() bool
	IsClosing() bool
	Close() error
}

type connection struct {
	uuid      string
	backend   videobackend.Backend
	title     string
	mu        sync.Mutex
	closingMu sync.Mutex
	isClosing bool
	vc        videobackend.Connection
}

func (c *connection) UUID() string {
	return c.uuid
}

func (c *connection) Title() string {
	return c.title
}

func (c *connection) Read() (videoframe.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame := c.backend.NewFrame()
	if err := c.vc.Read(frame); err != nil {
		frame.Close()
		return nil, xerror.Errorf("unable to read frame from connection: %w", err)
	}
	return frame, nil
}

func (c *connection) IsOpen() bool {
	return c.vc.IsOpen()
}

func (c *connection) IsClosing() bool {
	c.closingMu.Lock()
	defer c.closingMu.Unlock()
	return c.isClosing
}

func (c *connection) Close() error {
	c.closingMu.Lock()
	c.isClosing = true
	c.closingMu.Unlock()
	return c.vc.Close()
}

func connect(ctx context.Context, title, addr string, backend videobackend.Backend) (Connection, error) {
	vc, err := backend.Connect(ctx, addr)
	if err != nil {
		return nil, xerror.Errorf("Unable to connect to stream [%s]: %w", title, err)
	}
	return &connection{
		uuid:    uuid.NewString(),
		backend: backend,
		title:   title,
		vc:      vc,
	}, nil
}

func Connect(title, addr string, backend videobackend.Backend) (Connection, error) {
	return connect(context.Background(), title, addr, backend)
}

func ConnectWithCancel(cancel context.Context, title, addr string, backend videobackend.Backend) (Connection, error) {
	return connect(cancel, title, addr, backend)
}
