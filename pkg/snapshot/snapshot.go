// Package snapshot flushes the frame buffer's current window to disk on
// demand, one timestamped directory per flush.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/tauraamui/framerecorder/pkg/database/models"
	"github.com/tauraamui/framerecorder/pkg/log"
	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const (
	DirNameLayout    = "2006-01-02_15-04-05"
	MetadataFileName = "metadata.json"
	framePrefix      = "saved_frame_"
)

var Timestamp = func() time.Time {
	return time.Now()
}

var fs = afero.NewOsFs()

// Drainer hands over ownership of every frame it holds, oldest first.
type Drainer interface {
	DrainAll() []videoframe.Frame
}

// Index records each saved snapshot. Failing to record is never fatal.
type Index interface {
	Create(*models.Snapshot) error
}

type Observer interface {
	SnapshotSaved(frames int)
	SnapshotFailed(kind string)
}

type Option func(*Service)

func WithIndex(index Index) Option {
	return func(s *Service) { s.index = index }
}

func WithObserver(observer Observer) Option {
	return func(s *Service) { s.observer = observer }
}

type Service struct {
	root    string
	buffer  Drainer
	encoder videoframe.Encoder

	index    Index
	observer Observer

	flush sync.Mutex
}

func New(root string, buffer Drainer, encoder videoframe.Encoder, opts ...Option) *Service {
	s := &Service{root: root, buffer: buffer, encoder: encoder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Root() string { return s.root }

// Save drains the buffer into a new destination directory alongside
// metadata and returns how many frames were written. Metadata is written
// byte for byte as given, an empty document is stored as null. Only one
// save runs at a time.
func (s *Service) Save(ctx context.Context, metadata json.RawMessage) (int, error) {
	count, err := s.save(ctx, metadata)
	if err != nil {
		log.Error("Unable to save snapshot: %v", err)
		if s.observer != nil {
			s.observer.SnapshotFailed(failureKind(err))
		}
		return count, err
	}
	if s.observer != nil {
		s.observer.SnapshotSaved(count)
	}
	return count, nil
}

func (s *Service) save(ctx context.Context, metadata json.RawMessage) (int, error) {
	doc, err := metadataDocument(metadata)
	if err != nil {
		return 0, err
	}

	s.flush.Lock()
	defer s.flush.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, xerror.Errorf("snapshot cancelled before drain: %w", err)
	}

	dest, err := s.createDestination()
	if err != nil {
		return 0, err
	}

	frames := s.buffer.DrainAll()
	log.Debug("Drained %d frames into snapshot [%s]", len(frames), dest)

	if err := s.writeFrames(dest, frames); err != nil {
		return 0, err
	}

	if err := afero.WriteFile(fs, filepath.Join(dest, MetadataFileName), doc, 0644); err != nil {
		return 0, xerror.Errorf("%w: %v", ErrMetadataSerialization, err)
	}

	log.Info("Saved %d frames to [%s]", len(frames), dest)
	s.record(dest, len(frames), doc)

	return len(frames), nil
}

func metadataDocument(metadata json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(metadata)) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(metadata) {
		return nil, xerror.Errorf("%w: not a single JSON document", ErrMetadataSerialization)
	}
	return metadata, nil
}

func (s *Service) createDestination() (string, error) {
	if err := fs.MkdirAll(s.root, os.ModeDir|os.ModePerm); err != nil {
		return "", xerror.Errorf("%w: %s: %v", ErrCreateDestination, s.root, err)
	}

	dest := filepath.Join(s.root, Timestamp().Format(DirNameLayout))
	if err := fs.Mkdir(dest, os.ModeDir|os.ModePerm); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", xerror.Errorf("%w: %s", ErrDestinationCollision, dest)
		}
		return "", xerror.Errorf("%w: %s: %v", ErrCreateDestination, dest, err)
	}
	return dest, nil
}

// writeFrames closes every frame it is given, including those left
// unwritten after a failure.
func (s *Service) writeFrames(dest string, frames []videoframe.Frame) error {
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	for i, f := range frames {
		data, err := s.encoder.Encode(f)
		if err != nil {
			return xerror.Errorf("%w: frame %d: %v", ErrEncodeFrame, i, err)
		}

		path := filepath.Join(dest, FrameFileName(i, s.encoder.FileExt()))
		if err := afero.WriteFile(fs, path, data, 0644); err != nil {
			return xerror.Errorf("%w: frame %d: %v", ErrEncodeFrame, i, err)
		}
	}
	return nil
}

func (s *Service) record(dest string, count int, doc []byte) {
	if s.index == nil {
		return
	}
	err := s.index.Create(&models.Snapshot{
		UUID:       uuid.NewString(),
		Dir:        dest,
		FrameCount: count,
		Metadata:   string(doc),
	})
	if err != nil {
		log.Warn("Unable to record snapshot [%s] in index: %v", dest, err)
	}
}

func FrameFileName(i int, ext string) string {
	return fmt.Sprintf("%s%d%s", framePrefix, i, ext)
}
