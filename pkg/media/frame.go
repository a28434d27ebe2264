// Package media decodes and normalizes the raw frame and audio inputs
// handed to the pipeline. Malformed encodings are rejected here, at the
// boundary, so the pipeline itself only ever sees well-formed buffers.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
)

// Sentinel errors for input validation.
var (
	// ErrUnsupportedFrameEncoding is returned for encodings other than jpeg/png.
	ErrUnsupportedFrameEncoding = errors.New("media: unsupported frame encoding; expected jpeg or png")

	// ErrFrameDecode is returned when the frame bytes cannot be decoded.
	ErrFrameDecode = errors.New("media: unable to decode frame data")

	// ErrUnsupportedAudioFormat is returned for formats other than float32.
	ErrUnsupportedAudioFormat = errors.New("media: unsupported audio format; expected float32")

	// ErrAudioDecode is returned when the audio bytes cannot be decoded.
	ErrAudioDecode = errors.New("media: invalid audio data encoding")
)

// Default frame preprocessing target, matching the estimators' expectations.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 480
)

// Frame is a decoded video frame.
type Frame struct {
	Image image.Image
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Image.Bounds().Dy()
}

// DecodeFrame decodes raw frame bytes with the declared encoding.
// Only jpeg and png are accepted.
func DecodeFrame(data []byte, encoding string) (*Frame, error) {
	var img image.Image
	var err error

	switch strings.ToLower(encoding) {
	case "jpeg", "jpg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "png":
		img, err = png.Decode(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFrameEncoding
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameDecode, err)
	}

	return &Frame{Image: img}, nil
}

// FramePreprocessor resizes frames to the fixed size the estimators expect.
// It is a total function: any decoded frame yields a valid output.
type FramePreprocessor struct {
	TargetWidth  int
	TargetHeight int
}

// NewFramePreprocessor creates a preprocessor with the default 640x480 target.
func NewFramePreprocessor() *FramePreprocessor {
	return &FramePreprocessor{
		TargetWidth:  DefaultFrameWidth,
		TargetHeight: DefaultFrameHeight,
	}
}

// Preprocess resizes the frame to the target size. Frames already at the
// target size pass through untouched.
func (p *FramePreprocessor) Preprocess(f *Frame) *Frame {
	if f.Width() == p.TargetWidth && f.Height() == p.TargetHeight {
		return f
	}
	return &Frame{Image: resizeNearest(f.Image, p.TargetWidth, p.TargetHeight)}
}

// resizeNearest scales an image with nearest-neighbor sampling. The
// landmark heuristics downstream do not need interpolation quality.
func resizeNearest(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()

	for y := 0; y < h; y++ {
		sy := sb.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := sb.Min.X + x*sw/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
