package videoframe

type Dimensions struct {
	W, H int
}

type NoCloser interface {
	Timestamp() int64
	DataRef() interface{}
	Dimensions() Dimensions
}

type Frame interface {
	NoCloser
	Close()
}

// Encoder turns a frame into the bytes of a single image file.
type Encoder interface {
	Encode(NoCloser) ([]byte, error)
	FileExt() string
}
