package videobackend

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const defaultMockFPS = 25

type MockOptions struct {
	// FPS is the native rate the synthetic stream produces frames at.
	FPS int
	// MaxFrames ends the stream after this many frames, 0 means never.
	MaxFrames int
}

type mockVideoBackend struct {
	opts MockOptions
}

func (b *mockVideoBackend) Connect(cancel context.Context, addr string) (Connection, error) {
	select {
	case <-cancel.Done():
		return nil, xerror.New("connection cancelled")
	default:
	}
	return &mockVideoConnection{
		title:    addr,
		interval: time.Second / time.Duration(b.opts.FPS),
		max:      b.opts.MaxFrames,
		isOpen:   true,
	}, nil
}

func (b *mockVideoBackend) NewFrame() videoframe.Frame {
	return &imageFrame{}
}

func (b *mockVideoBackend) NewEncoder() videoframe.Encoder {
	return pngEncoder{}
}

type imageFrame struct {
	img       *image.RGBA
	timestamp int64
}

func (f *imageFrame) Timestamp() int64 { return f.timestamp }

func (f *imageFrame) DataRef() interface{} { return f.img }

func (f *imageFrame) Dimensions() videoframe.Dimensions {
	if f.img == nil {
		return videoframe.Dimensions{}
	}
	b := f.img.Bounds()
	return videoframe.Dimensions{W: b.Dx(), H: b.Dy()}
}

func (f *imageFrame) Close() { f.img = nil }

type pngEncoder struct{}

func (e pngEncoder) FileExt() string { return ".png" }

func (e pngEncoder) Encode(frame videoframe.NoCloser) ([]byte, error) {
	img, ok := frame.DataRef().(*image.RGBA)
	if !ok || img == nil {
		return nil, xerror.New("must pass populated image frame to PNG encoder")
	}
	buf := bytes.Buffer{}
	if err := png.Encode(&buf, img); err != nil {
		return nil, xerror.Errorf("unable to encode frame as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

type mockVideoConnection struct {
	mu              sync.Mutex
	uuid            string
	title           string
	interval        time.Duration
	lastRead        time.Time
	max, read       int
	isOpen          bool
	baseFrameCanvas image.Image
}

func (mvc *mockVideoConnection) UUID() string {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	if len(mvc.uuid) == 0 {
		mvc.uuid = uuid.NewString()
	}
	return mvc.uuid
}

func (mvc *mockVideoConnection) Read(frame videoframe.Frame) error {
	f, ok := frame.(*imageFrame)
	if !ok {
		return xerror.New("must pass image frame to MockVideo connection read")
	}

	mvc.mu.Lock()
	defer mvc.mu.Unlock()

	if !mvc.isOpen {
		return xerror.New("mock video connection is closed")
	}
	if mvc.max > 0 && mvc.read >= mvc.max {
		return xerror.New("mock video stream exhausted")
	}

	mvc.pace()

	if mvc.baseFrameCanvas == nil {
		mvc.baseFrameCanvas = renderBaseFrameCanvas()
	}

	now := time.Now()
	img, err := drawTextLayerOntoBaseFrameClone(mvc.baseFrameCanvas, mvc.title, now)
	if err != nil {
		return err
	}

	f.img = img
	f.timestamp = now.UnixNano()
	mvc.read++
	return nil
}

// pace holds the caller until the next frame is due at the configured rate
func (mvc *mockVideoConnection) pace() {
	if mvc.interval <= 0 {
		return
	}
	if !mvc.lastRead.IsZero() {
		if wait := mvc.interval - time.Since(mvc.lastRead); wait > 0 {
			time.Sleep(wait)
		}
	}
	mvc.lastRead = time.Now()
}

func (mvc *mockVideoConnection) IsOpen() bool {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	return mvc.isOpen
}

func (mvc *mockVideoConnection) Close() error {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	mvc.isOpen = false
	mvc.baseFrameCanvas = nil
	return nil
}

func drawTextLayerOntoBaseFrameClone(base image.Image, title string, at time.Time) (*image.RGBA, error) {
	baseClone := cloneImage(base)
	err := drawText(baseClone, 5, 50, "FR_MOCK_STREAM")
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock stream: %w", err)
	}

	err = drawText(baseClone, 5, 180, title)
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock stream: %w", err) //nolint
	}
	err = drawText(baseClone, 5, 310, at.Format("2006-01-02 15:04:05.000"))
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock stream: %w", err) //nolint
	}
	return baseClone, nil
}

func renderBaseFrameCanvas() image.Image {
	var w, h int = 600, 400
	var hw, hh float64 = float64(w / 2), float64(h / 2)
	r := 200.0
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), 300}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), 300}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), 300}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			})
		}
	}
	return img
}

func cloneImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

var (
	parseFontOnce sync.Once
	parsedFont    *truetype.Font
	parseFontErr  error
)

func regularFont() (*truetype.Font, error) {
	parseFontOnce.Do(func() {
		parsedFont, parseFontErr = freetype.ParseFont(goregular.TTF)
	})
	return parsedFont, parseFontErr
}

func drawText(canvas *image.RGBA, x, y int, text string) error {
	fontFace, err := regularFont()
	if err != nil {
		return err
	}
	fontDrawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(fontFace, &truetype.Options{
			Size:    48,
			Hinting: font.HintingFull,
		}),
	}
	textBounds, _ := fontDrawer.BoundString(text)
	textHeight := textBounds.Max.Y - textBounds.Min.Y
	yPosition := fixed.I((y)-textHeight.Ceil())/2 + fixed.I(textHeight.Ceil())
	fontDrawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: yPosition,
	}
	fontDrawer.DrawString(text)
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
