package mocks

import (
	"fmt"

	"github.com/tauraamui/framerecorder/pkg/video/videoframe"
)

// Encoder writes a frame's DataRef as text, handy for asserting
// which frame ended up in which file.
type Encoder struct {
	Err       error
	FailAfter int
	calls     int
}

func (e *Encoder) FileExt() string { return ".png" }

func (e *Encoder) Encode(frame videoframe.NoCloser) ([]byte, error) {
	e.calls++
	if e.Err != nil && e.calls > e.FailAfter {
		return nil, e.Err
	}
	return []byte(fmt.Sprintf("%v", frame.DataRef())), nil
}
