package inflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/jpfielding/pixdec.go/pkg/imgerr"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// Inflater turns a zlib stream into at most maxOutput bytes (0 = unlimited).
type Inflater interface {
	Inflate(src []byte, maxOutput int) ([]byte, error)
	Name() string
}

// Native is the decoder implemented in this package.
type Native struct{}

func (Native) Inflate(src []byte, maxOutput int) ([]byte, error) {
	return Inflate(src, &Options{MaxOutput: maxOutput, SizeHint: maxOutput})
}

func (Native) Name() string {
	return "native"
}

// Klauspost delegates to github.com/klauspost/compress/zlib, mapping its
// errors onto the same kinds Native reports.
type Klauspost struct{}

func (Klauspost) Inflate(src []byte, maxOutput int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, klauspostError(err)
	}
	defer zr.Close()

	var r io.Reader = zr
	if maxOutput > 0 {
		r = io.LimitReader(zr, int64(maxOutput)+1)
	}
	var buf bytes.Buffer
	if maxOutput > 0 {
		buf.Grow(min(maxOutput, maxPrealloc))
	}
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, klauspostError(err)
	}
	if maxOutput > 0 && buf.Len() > maxOutput {
		return nil, imgerr.New(imgerr.ErrLimitExceeded, "inflate", "output exceeds %d bytes", maxOutput)
	}
	return buf.Bytes(), nil
}

func (Klauspost) Name() string {
	return "klauspost"
}

func klauspostError(err error) error {
	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, zlib.ErrChecksum):
		return imgerr.New(imgerr.ErrIntegrity, "inflate", "%v", err)
	case errors.Is(err, zlib.ErrHeader), errors.Is(err, zlib.ErrDictionary):
		return imgerr.New(imgerr.ErrUnsupportedCompression, "inflate", "%v", err)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return imgerr.New(imgerr.ErrTruncated, "inflate", "%v", err)
	case errors.As(err, &corrupt):
		return imgerr.New(imgerr.ErrCorruptStream, "inflate", "%v", err).At(int(corrupt))
	}
	return fmt.Errorf("inflate: %w", err)
}

// ByName returns the Inflater registered under name.
func ByName(name string) (Inflater, error) {
	switch name {
	case "", "native":
		return Native{}, nil
	case "klauspost":
		return Klauspost{}, nil
	}
	return nil, fmt.Errorf("unknown inflater %q (native|klauspost)", name)
}
