package process

import (
	"context"
	"sync"

	"github.com/tauraamui/framerecorder/pkg/log"
	"github.com/tauraamui/framerecorder/pkg/stream"
	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
)

type State int

const (
	IDLE State = iota
	RUNNING
	STOPPED
)

func (s State) String() string {
	switch s {
	case RUNNING:
		return "running"
	case STOPPED:
		return "stopped"
	default:
		return "idle"
	}
}

type FrameAppender interface {
	Append(videoframe.Frame)
}

type IngestProcess interface {
	Process
	State() State
	// Err is the read error which ended ingestion, nil if it was
	// stopped or is still running.
	Err() error
}

type ingestProcess struct {
	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan interface{}
	src      stream.Connection
	dest     FrameAppender
	mu       sync.Mutex
	state    State
	err      error
}

func NewIngestProcess(src stream.Connection, dest FrameAppender) IngestProcess {
	ctx, cancel := context.WithCancel(context.Background())
	return &ingestProcess{
		ctx: ctx, cancel: cancel,
		src: src, dest: dest,
		stopping: make(chan interface{}),
	}
}

func (proc *ingestProcess) Setup() Process { return proc }

func (proc *ingestProcess) Start() {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if proc.state != IDLE {
		return
	}
	proc.state = RUNNING
	log.Info("Ingesting frames from stream [%s]", proc.src.Title())
	go proc.run()
}

func (proc *ingestProcess) run() {
	defer close(proc.stopping)
	defer proc.setState(STOPPED)

	for {
		select {
		case <-proc.ctx.Done():
			log.Info("Stopped ingesting frames from stream [%s]", proc.src.Title())
			return
		default:
		}

		frame, err := proc.src.Read()
		if err != nil {
			proc.mu.Lock()
			proc.err = err
			proc.mu.Unlock()
			log.Error("Stream [%s] ended: %v. Frame ingestion has stopped", proc.src.Title(), err)
			return
		}
		log.Debug("Appending frame from stream [%s] to buffer", proc.src.Title())
		proc.dest.Append(frame)
	}
}

func (proc *ingestProcess) setState(s State) {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	proc.state = s
}

func (proc *ingestProcess) State() State {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	return proc.state
}

func (proc *ingestProcess) Err() error {
	proc.mu.Lock()
	defer proc.mu.Unlock()
	return proc.err
}

func (proc *ingestProcess) Stop() {
	proc.cancel()
}

func (proc *ingestProcess) Wait() {
	if proc.State() == IDLE {
		return
	}
	<-proc.stopping
}
