package process

import (
	"context"
	"sync"
	"time"

	"github.com/tauraamui/framerecorder/pkg/log"
)

type Process interface {
	Setup() Process
	Start()
	Stop()
	Wait()
}

// Settings describe a process built by New. Run is called at most once,
// with a context cancelled by Stop, and returns channels which close once
// the work has wound down.
type Settings struct {
	Name string
	Run  func(context.Context) []chan interface{}
}

func New(settings Settings) Process {
	ctx, cancel := context.WithCancel(context.Background())
	return &process{
		name:   settings.Name,
		run:    settings.Run,
		ctx:    ctx,
		cancel: cancel,
	}
}

type process struct {
	name   string
	run    func(context.Context) []chan interface{}
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	done    []chan interface{}
}

func (p *process) Setup() Process { return p }

// Start is a no-op once the process has been started or stopped.
func (p *process) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.ctx.Err() != nil || p.run == nil {
		return
	}
	p.started = true
	log.Debug("Starting %s", p.name)
	p.done = p.run(p.ctx)
}

func (p *process) Stop() {
	if p.ctx.Err() == nil && len(p.name) > 0 {
		log.Info("Shutting down %s...", p.name)
	}
	p.cancel()
}

func (p *process) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	for _, d := range done {
		<-d
	}
}

// WaitFor blocks on proc.Wait for at most timeout and reports whether
// the process wound down in time.
func WaitFor(proc Process, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		proc.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
