package mocks

import (
	"sync"
	"sync/atomic"

	"github.com/tauraamui/framerecorder/pkg/stream"
	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var ErrOutOfFrames = xerror.New("run out of frames to read")

type Options struct {
	Title string
	// FrameCount is the number of frames served before reads fail,
	// ignored when UntrackedFrames is set.
	FrameCount int
	// UntrackedFrames makes the stream infinite.
	UntrackedFrames bool
	ReadFunc        func() (videoframe.Frame, error)
	OnPostRead      func()
}

func NewStreamConn(opts Options) *StreamConn {
	title := opts.Title
	if len(title) == 0 {
		title = "MockStream"
	}
	return &StreamConn{opts: opts, title: title, isOpen: true}
}

type Frame struct {
	ID     int
	closed int32
}

func (f *Frame) Timestamp() int64     { return int64(f.ID) }
func (f *Frame) DataRef() interface{} { return f.ID }
func (f *Frame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: 2, H: 2}
}
func (f *Frame) Close()         { atomic.StoreInt32(&f.closed, 1) }
func (f *Frame) IsClosed() bool { return atomic.LoadInt32(&f.closed) == 1 }

type StreamConn struct {
	opts      Options
	title     string
	mu        sync.Mutex
	read      int
	isOpen    bool
	isClosing bool
}

var _ stream.Connection = &StreamConn{}

func (m *StreamConn) UUID() string  { return "mock-stream-uuid" }
func (m *StreamConn) Title() string { return m.title }

func (m *StreamConn) Read() (videoframe.Frame, error) {
	if m.opts.OnPostRead != nil {
		defer m.opts.OnPostRead()
	}
	if m.opts.ReadFunc != nil {
		return m.opts.ReadFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isOpen {
		return nil, xerror.New("mock stream is closed")
	}
	if !m.opts.UntrackedFrames && m.read >= m.opts.FrameCount {
		return nil, ErrOutOfFrames
	}
	f := &Frame{ID: m.read}
	m.read++
	return f, nil
}

// Reads returns how many frames have been handed out so far.
func (m *StreamConn) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read
}

func (m *StreamConn) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOpen
}

func (m *StreamConn) IsClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosing
}

func (m *StreamConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isOpen = false
	m.isClosing = true
	return nil
}
