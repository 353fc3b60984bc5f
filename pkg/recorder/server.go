package recorder

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tauraamui/framerecorder/pkg/api"
	"github.com/tauraamui/framerecorder/pkg/configdef"
	"github.com/tauraamui/framerecorder/pkg/database"
	"github.com/tauraamui/framerecorder/pkg/database/dbconn"
	"github.com/tauraamui/framerecorder/pkg/database/repos"
	"github.com/tauraamui/framerecorder/pkg/framebuffer"
	"github.com/tauraamui/framerecorder/pkg/log"
	"github.com/tauraamui/framerecorder/pkg/metrics"
	"github.com/tauraamui/framerecorder/pkg/recorder/process"
	"github.com/tauraamui/framerecorder/pkg/snapshot"
	"github.com/tauraamui/framerecorder/pkg/stream"
	"github.com/tauraamui/framerecorder/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

const httpShutdownTimeout = 5 * time.Second

// ingestStopTimeout bounds how long shutdown waits on a read in flight
// before closing the stream underneath it.
var ingestStopTimeout = 5 * time.Second

var ErrServerClosed = xerror.New("frame recorder server has been shut down")

type Server interface {
	LoadConfiguration() error
	Connect() error
	ConnectWithCancel(context.Context) error
	SetupProcesses() error
	RunProcesses()
	Addr() string
	Health() api.Health
	Shutdown() chan interface{}
}

type Option func(*server)

// WithBackend replaces the backend otherwise picked by configuration.
func WithBackend(backend videobackend.Backend) Option {
	return func(s *server) { s.videoBackend = backend }
}

func NewServer(cr configdef.Resolver, opts ...Option) Server {
	s := &server{configResolver: cr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type server struct {
	configResolver configdef.Resolver
	config         configdef.Values
	videoBackend   videobackend.Backend

	mu         sync.Mutex
	conn       stream.Connection
	buffer     *framebuffer.Buffer
	metrics    *metrics.Recorder
	index      dbconn.GormWrapper
	snapshots  *snapshot.Service
	ingest     process.IngestProcess
	httpServer *http.Server
	listener   net.Listener
	httpProc   process.Process
	serving    bool
	closed     bool
}

func (s *server) LoadConfiguration() error {
	config, err := s.configResolver.Resolve()
	if err != nil {
		return err
	}

	s.config = config
	if s.videoBackend == nil {
		s.videoBackend = resolveBackend(config)
	}
	return nil
}

func resolveBackend(config configdef.Values) videobackend.Backend {
	if strings.EqualFold(config.Backend, videobackend.MockName) {
		return videobackend.MockWithOptions(videobackend.MockOptions{FPS: config.MockFPS})
	}
	return videobackend.Resolve(config.Backend)
}

func (s *server) Connect() error {
	return s.connect(context.Background())
}

func (s *server) ConnectWithCancel(cancel context.Context) error {
	return s.connect(cancel)
}

func (s *server) connect(cancel context.Context) error {
	log.Info("Connecting to stream: [%s]...", s.config.Video)
	conn, err := stream.ConnectWithCancel(cancel, s.config.Video, s.config.Video, s.videoBackend)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close() //nolint
		return ErrServerClosed
	}

	log.Info("Connected successfully to stream: [%s]", conn.Title())
	s.conn = conn
	return nil
}

// SetupProcesses builds the frame buffer and everything sharing it,
// and binds the listen address. Connect must have succeeded first.
func (s *server) SetupProcesses() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.conn == nil {
		return xerror.New("unable to setup processes: not connected to a stream")
	}

	s.metrics = metrics.New()
	buffer, err := framebuffer.NewWithObserver(s.config.NumFrames, s.metrics)
	if err != nil {
		return err
	}
	s.buffer = buffer

	snapshotOpts := []snapshot.Option{snapshot.WithObserver(s.metrics)}
	apiOpts := api.Options{Health: s.Health, Metrics: s.metrics.Handler()}
	if !s.config.DisableIndex {
		index, err := database.Connect(s.config.IndexPath)
		if err != nil {
			return xerror.Errorf("unable to open snapshot index: %w", err)
		}
		s.index = index
		repo := &repos.SnapshotRepository{DB: index}
		snapshotOpts = append(snapshotOpts, snapshot.WithIndex(repo))
		apiOpts.Snapshots = repo
	}

	s.snapshots = snapshot.New(s.config.RootDir, buffer, s.videoBackend.NewEncoder(), snapshotOpts...)
	apiOpts.Saver = s.snapshots

	s.ingest = process.NewIngestProcess(s.conn, buffer)
	s.ingest.Setup()

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return xerror.Errorf("unable to listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: api.NewHandler(apiOpts)}
	s.httpProc = process.New(process.Settings{
		Name: "HTTP server",
		Run:  serveHTTP(s.httpServer, listener),
	}).Setup()

	return nil
}

func serveHTTP(srv *http.Server, ln net.Listener) func(context.Context) []chan interface{} {
	return func(ctx context.Context) []chan interface{} {
		stopped := make(chan interface{})
		go func() {
			log.Info("Serving HTTP on %s", ln.Addr())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server stopped unexpectedly: %v", err)
			}
		}()
		go func() {
			defer close(stopped)
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Unable to gracefully shutdown HTTP server: %v", err)
			}
		}()
		return []chan interface{}{stopped}
	}
}

func (s *server) RunProcesses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.ingest != nil {
		s.ingest.Start()
	}
	if s.httpProc != nil {
		s.httpProc.Start()
		s.serving = true
	}
}

func (s *server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *server) Health() api.Health {
	health := api.Health{Ingest: process.IDLE.String()}
	if s.ingest != nil {
		health.Ingest = s.ingest.State().String()
	}
	if s.buffer != nil {
		health.Buffered = s.buffer.Len()
		health.Capacity = s.buffer.Cap()
	}
	return health
}

func (s *server) shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var result *multierror.Error
	if s.serving {
		s.httpProc.Stop()
		s.httpProc.Wait()
	} else if s.listener != nil {
		result = multierror.Append(result, s.listener.Close())
	}

	stalled := false
	if s.ingest != nil {
		s.ingest.Stop()
		if !process.WaitFor(s.ingest, ingestStopTimeout) {
			stalled = true
			log.Warn("Ingest did not stop within %s, closing stream under it", ingestStopTimeout)
		}
	}

	if s.conn != nil {
		log.Warn("Closing stream connection: [%s]...", s.conn.Title())
		if err := s.conn.Close(); err != nil {
			result = multierror.Append(result, xerror.Errorf("unable to close stream: %w", err))
		}
	}

	if stalled && !process.WaitFor(s.ingest, ingestStopTimeout) {
		result = multierror.Append(result, xerror.New("ingest still reading after stream was closed"))
	}

	if s.buffer != nil {
		frames := s.buffer.DrainAll()
		for _, f := range frames {
			f.Close()
		}
		log.Debug("Released %d buffered frames", len(frames))
	}

	if s.index != nil {
		if err := s.index.Close(); err != nil {
			result = multierror.Append(result, xerror.Errorf("unable to close snapshot index: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// Shutdown stops serving triggers, then ingestion, then releases the
// stream, the buffered frames and the index. The returned channel closes
// once all of it is done. Only the first call does any work and nothing
// can be started afterwards.
func (s *server) Shutdown() chan interface{} {
	done := make(chan interface{})
	go func() {
		defer close(done)
		if err := s.shutdown(); err != nil {
			log.Error("Errors during shutdown: %v", err)
		}
	}()
	return done
}
