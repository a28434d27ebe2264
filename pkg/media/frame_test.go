package media

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		encoding string
		wantErr  error
	}{
		{"png", nil, "png", nil},
		{"jpeg", nil, "jpeg", nil},
		{"jpg alias", nil, "jpg", nil},
		{"uppercase encoding", nil, "PNG", nil},
		{"unsupported encoding", nil, "gif", ErrUnsupportedFrameEncoding},
		{"garbage bytes", []byte("not an image"), "png", ErrFrameDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				switch tt.encoding {
				case "jpeg", "jpg":
					data = encodeJPEG(t, 32, 24)
				default:
					data = encodePNG(t, 32, 24)
				}
			}

			frame, err := DecodeFrame(data, tt.encoding)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DecodeFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if frame.Width() != 32 || frame.Height() != 24 {
				t.Errorf("frame size = %dx%d, want 32x24", frame.Width(), frame.Height())
			}
		})
	}
}

func TestFramePreprocessorResizes(t *testing.T) {
	p := NewFramePreprocessor()

	small := &Frame{Image: image.NewRGBA(image.Rect(0, 0, 32, 24))}
	out := p.Preprocess(small)
	if out.Width() != DefaultFrameWidth || out.Height() != DefaultFrameHeight {
		t.Errorf("resized to %dx%d, want %dx%d", out.Width(), out.Height(), DefaultFrameWidth, DefaultFrameHeight)
	}
}

func TestFramePreprocessorPassThrough(t *testing.T) {
	p := NewFramePreprocessor()

	exact := &Frame{Image: image.NewRGBA(image.Rect(0, 0, DefaultFrameWidth, DefaultFrameHeight))}
	if out := p.Preprocess(exact); out != exact {
		t.Error("frame at target size should pass through untouched")
	}
}
