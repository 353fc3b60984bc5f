package snapshot_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/framerecorder/pkg/database/models"
	"github.com/tauraamui/framerecorder/pkg/framebuffer"
	"github.com/tauraamui/framerecorder/pkg/mocks"
	"github.com/tauraamui/framerecorder/pkg/recorder/process"
	"github.com/tauraamui/framerecorder/pkg/snapshot"
)

const testRoot = "/testroot/storage"

var testTime = time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC)

type testIndex struct {
	err     error
	created []*models.Snapshot
}

func (i *testIndex) Create(s *models.Snapshot) error {
	if i.err != nil {
		return i.err
	}
	i.created = append(i.created, s)
	return nil
}

type testObserver struct {
	saved    []int
	failures []string
}

func (o *testObserver) SnapshotSaved(frames int)   { o.saved = append(o.saved, frames) }
func (o *testObserver) SnapshotFailed(kind string) { o.failures = append(o.failures, kind) }

type SnapshotTestSuite struct {
	suite.Suite
	fs             afero.Fs
	now            time.Time
	resetFS        func()
	resetTimestamp func()
}

func (suite *SnapshotTestSuite) SetupSuite() {
	logging.CurrentLoggingLevel = logging.SilentLevel
}

func (suite *SnapshotTestSuite) TearDownSuite() {
	logging.CurrentLoggingLevel = logging.WarnLevel
}

func (suite *SnapshotTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
	suite.resetFS = snapshot.OverloadFS(suite.fs)

	suite.now = testTime
	timestampRef := snapshot.Timestamp
	snapshot.Timestamp = func() time.Time { return suite.now }
	suite.resetTimestamp = func() { snapshot.Timestamp = timestampRef }
}

func (suite *SnapshotTestSuite) TearDownTest() {
	suite.resetFS()
	suite.resetTimestamp()
}

func TestSnapshotTestSuite(t *testing.T) {
	suite.Run(t, &SnapshotTestSuite{})
}

func (suite *SnapshotTestSuite) bufferWith(capacity int, frames ...*mocks.Frame) *framebuffer.Buffer {
	buf, err := framebuffer.New(capacity)
	require.NoError(suite.T(), err)
	for _, f := range frames {
		buf.Append(f)
	}
	return buf
}

func (suite *SnapshotTestSuite) readFile(path string) string {
	data, err := afero.ReadFile(suite.fs, path)
	require.NoError(suite.T(), err)
	return string(data)
}

func (suite *SnapshotTestSuite) exists(path string) bool {
	ok, err := afero.Exists(suite.fs, path)
	require.NoError(suite.T(), err)
	return ok
}

func (suite *SnapshotTestSuite) TestSaveWritesFramesOldestFirstWithMetadata() {
	is := is.New(suite.T())
	a, b, c, d := &mocks.Frame{ID: 'A'}, &mocks.Frame{ID: 'B'}, &mocks.Frame{ID: 'C'}, &mocks.Frame{ID: 'D'}
	buf := suite.bufferWith(3, a, b, c, d)

	svc := snapshot.New(testRoot, buf, &mocks.Encoder{})
	count, err := svc.Save(context.Background(), json.RawMessage(`{"event":"motion"}`))
	is.NoErr(err)
	is.Equal(count, 3)

	dest := filepath.Join(testRoot, "2021-03-14_15-09-26")
	is.Equal(suite.readFile(filepath.Join(dest, "saved_frame_0.png")), fmt.Sprint('B'))
	is.Equal(suite.readFile(filepath.Join(dest, "saved_frame_1.png")), fmt.Sprint('C'))
	is.Equal(suite.readFile(filepath.Join(dest, "saved_frame_2.png")), fmt.Sprint('D'))
	is.True(!suite.exists(filepath.Join(dest, "saved_frame_3.png")))
	is.Equal(suite.readFile(filepath.Join(dest, snapshot.MetadataFileName)), `{"event":"motion"}`)

	is.True(a.IsClosed()) // evicted
	is.True(b.IsClosed() && c.IsClosed() && d.IsClosed())
	is.Equal(buf.Len(), 0)
}

func (suite *SnapshotTestSuite) TestSaveInSameSecondCollidesWithoutDraining() {
	is := is.New(suite.T())
	buf := suite.bufferWith(5, &mocks.Frame{ID: 1}, &mocks.Frame{ID: 2})
	observer := &testObserver{}
	svc := snapshot.New(testRoot, buf, &mocks.Encoder{}, snapshot.WithObserver(observer))

	count, err := svc.Save(context.Background(), nil)
	is.NoErr(err)
	is.Equal(count, 2)

	buf.Append(&mocks.Frame{ID: 3})
	count, err = svc.Save(context.Background(), nil)
	is.True(errors.Is(err, snapshot.ErrDestinationCollision))
	is.Equal(count, 0)
	is.Equal(buf.Len(), 1) // nothing drained

	is.Equal(observer.saved, []int{2})
	is.Equal(observer.failures, []string{"collision"})

	suite.now = suite.now.Add(time.Second)
	count, err = svc.Save(context.Background(), nil)
	is.NoErr(err)
	is.Equal(count, 1)
}

func (suite *SnapshotTestSuite) TestSaveOfEmptyBufferStillWritesMetadata() {
	is := is.New(suite.T())
	svc := snapshot.New(testRoot, suite.bufferWith(4), &mocks.Encoder{})

	count, err := svc.Save(context.Background(), json.RawMessage(`{"k":1}`))
	is.NoErr(err)
	is.Equal(count, 0)

	dest := filepath.Join(testRoot, "2021-03-14_15-09-26")
	is.True(suite.exists(dest))
	is.Equal(suite.readFile(filepath.Join(dest, snapshot.MetadataFileName)), `{"k":1}`)
	is.True(!suite.exists(filepath.Join(dest, "saved_frame_0.png")))
}

func (suite *SnapshotTestSuite) TestSaveAfterSourceExhaustedReturnsRemainingThenZero() {
	is := is.New(suite.T())
	buf := suite.bufferWith(10)

	ingest := process.NewIngestProcess(mocks.NewStreamConn(mocks.Options{FrameCount: 3}), buf)
	ingest.Setup().Start()
	ingest.Wait()
	is.Equal(ingest.State(), process.STOPPED)

	svc := snapshot.New(testRoot, buf, &mocks.Encoder{})
	count, err := svc.Save(context.Background(), nil)
	is.NoErr(err)
	is.Equal(count, 3)

	suite.now = suite.now.Add(time.Second)
	count, err = svc.Save(context.Background(), nil)
	is.NoErr(err)
	is.Equal(count, 0)
}

func (suite *SnapshotTestSuite) TestSaveWithInvalidMetadataTouchesNothing() {
	is := is.New(suite.T())
	buf := suite.bufferWith(3, &mocks.Frame{ID: 1})
	observer := &testObserver{}
	svc := snapshot.New(testRoot, buf, &mocks.Encoder{}, snapshot.WithObserver(observer))

	count, err := svc.Save(context.Background(), json.RawMessage(`{"c":`))
	is.True(errors.Is(err, snapshot.ErrMetadataSerialization))
	is.Equal(count, 0)
	is.Equal(buf.Len(), 1)
	is.True(!suite.exists(testRoot))
	is.Equal(observer.failures, []string{"metadata"})
}

func (suite *SnapshotTestSuite) TestSaveEncodeFailureClosesRemainingFrames() {
	is := is.New(suite.T())
	frames := []*mocks.Frame{{ID: 0}, {ID: 1}, {ID: 2}}
	buf := suite.bufferWith(3, frames...)
	observer := &testObserver{}
	encoder := &mocks.Encoder{Err: errors.New("test encode failure"), FailAfter: 1}
	svc := snapshot.New(testRoot, buf, encoder, snapshot.WithObserver(observer))

	_, err := svc.Save(context.Background(), nil)
	is.True(errors.Is(err, snapshot.ErrEncodeFrame))
	is.Equal(buf.Len(), 0) // frames were drained and are lost

	dest := filepath.Join(testRoot, "2021-03-14_15-09-26")
	is.True(suite.exists(filepath.Join(dest, "saved_frame_0.png")))
	is.True(!suite.exists(filepath.Join(dest, "saved_frame_1.png")))
	is.True(!suite.exists(filepath.Join(dest, snapshot.MetadataFileName)))
	for _, f := range frames {
		is.True(f.IsClosed())
	}
	is.Equal(observer.failures, []string{"encode_frame"})
}

func (suite *SnapshotTestSuite) TestSaveCreateDestinationFailureDrainsNothing() {
	is := is.New(suite.T())
	reset := snapshot.OverloadFS(afero.NewReadOnlyFs(afero.NewMemMapFs()))
	defer reset()

	buf := suite.bufferWith(3, &mocks.Frame{ID: 1})
	svc := snapshot.New(testRoot, buf, &mocks.Encoder{})

	_, err := svc.Save(context.Background(), nil)
	is.True(errors.Is(err, snapshot.ErrCreateDestination))
	is.Equal(buf.Len(), 1)
}

func (suite *SnapshotTestSuite) TestSaveWithCancelledContextDrainsNothing() {
	is := is.New(suite.T())
	buf := suite.bufferWith(3, &mocks.Frame{ID: 1})
	svc := snapshot.New(testRoot, buf, &mocks.Encoder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Save(ctx, nil)
	is.True(errors.Is(err, context.Canceled))
	is.Equal(buf.Len(), 1)
}

func (suite *SnapshotTestSuite) TestSaveRecordsSnapshotInIndex() {
	is := is.New(suite.T())
	index := &testIndex{}
	svc := snapshot.New(testRoot, suite.bufferWith(3, &mocks.Frame{ID: 7}), &mocks.Encoder{}, snapshot.WithIndex(index))

	count, err := svc.Save(context.Background(), json.RawMessage(`["a","b"]`))
	is.NoErr(err)
	is.Equal(count, 1)

	is.Equal(len(index.created), 1)
	record := index.created[0]
	is.Equal(record.Dir, filepath.Join(testRoot, "2021-03-14_15-09-26"))
	is.Equal(record.FrameCount, 1)
	is.Equal(record.Metadata, `["a","b"]`)
	is.True(len(record.UUID) > 0)
}

func (suite *SnapshotTestSuite) TestSaveSucceedsWhenIndexFails() {
	is := is.New(suite.T())
	index := &testIndex{err: errors.New("test index failure")}
	svc := snapshot.New(testRoot, suite.bufferWith(3, &mocks.Frame{ID: 7}), &mocks.Encoder{}, snapshot.WithIndex(index))

	count, err := svc.Save(context.Background(), nil)
	is.NoErr(err)
	is.Equal(count, 1)
}

func (suite *SnapshotTestSuite) TestConcurrentSavesDrainEachFrameOnce() {
	t := suite.T()
	buf := suite.bufferWith(8)
	for i := 0; i < 8; i++ {
		buf.Append(&mocks.Frame{ID: i})
	}

	var clock sync.Mutex
	tick := 0
	timestampRef := snapshot.Timestamp
	snapshot.Timestamp = func() time.Time {
		clock.Lock()
		defer clock.Unlock()
		tick++
		return testTime.Add(time.Duration(tick) * time.Second)
	}
	defer func() { snapshot.Timestamp = timestampRef }()

	svc := snapshot.New(testRoot, buf, &mocks.Encoder{})
	counts := make(chan int, 4)
	wg := sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := svc.Save(context.Background(), nil)
			assert.NoError(t, err)
			counts <- count
		}()
	}
	wg.Wait()
	close(counts)

	total := 0
	for c := range counts {
		total += c
	}
	assert.Equal(t, 8, total)
}

func TestFrameFileName(t *testing.T) {
	is := is.New(t)
	is.Equal(snapshot.FrameFileName(0, ".png"), "saved_frame_0.png")
	is.Equal(snapshot.FrameFileName(12, ".png"), "saved_frame_12.png")
}

func TestMetadataIsWrittenByteForByte(t *testing.T) {
	for _, tc := range []struct {
		in, out string
	}{
		{"12.50", "12.50"},
		{`{"zone":"<door>","a":1,"a":2}`, `{"zone":"<door>","a":1,"a":2}`},
		{"{ \"b\": [1, 2],\n  \"a\": \"x & y\" }\n", "{ \"b\": [1, 2],\n  \"a\": \"x & y\" }\n"},
		{"", "null"},
		{" \n", "null"},
	} {
		is := is.New(t)
		fs := afero.NewMemMapFs()
		reset := snapshot.OverloadFS(fs)

		timestampRef := snapshot.Timestamp
		snapshot.Timestamp = func() time.Time { return testTime }

		buf, err := framebuffer.New(1)
		is.NoErr(err)
		index := &testIndex{}
		svc := snapshot.New(testRoot, buf, &mocks.Encoder{}, snapshot.WithIndex(index))

		_, err = svc.Save(context.Background(), json.RawMessage(tc.in))
		is.NoErr(err)

		data, err := afero.ReadFile(fs, filepath.Join(testRoot, "2021-03-14_15-09-26", snapshot.MetadataFileName))
		is.NoErr(err)
		is.Equal(string(data), tc.out)
		is.Equal(index.created[0].Metadata, tc.out)

		snapshot.Timestamp = timestampRef
		reset()
	}
}
