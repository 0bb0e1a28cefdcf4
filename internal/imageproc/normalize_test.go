package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, format)
	require.NoError(t, err)

	return buf.Bytes()
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format imaging.Format
	}{
		{"png square", testImage(t, 100, 100, imaging.PNG), imaging.PNG},
		{"png wide", testImage(t, 1000, 764, imaging.PNG), imaging.PNG},
		{"jpeg", testImage(t, 320, 200, imaging.JPEG), imaging.JPEG},
		{"gif", testImage(t, 50, 80, imaging.GIF), imaging.GIF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Normalize(tt.data, model.ProcessedSide)
			require.NoError(t, err)

			require.Equal(t, tt.format, res.Format)
			require.Equal(t, "500x500", res.Resolution())
			require.NotEmpty(t, res.ContentType())

			img, err := imaging.Decode(bytes.NewReader(res.Data))
			require.NoError(t, err)
			require.Equal(t, 500, img.Bounds().Dx())
			require.Equal(t, 500, img.Bounds().Dy())
		})
	}
}

func TestNormalize_SingleChannel(t *testing.T) {
	for _, format := range []imaging.Format{imaging.PNG, imaging.JPEG} {
		res, err := Normalize(testImage(t, 100, 100, format), model.ProcessedSide)
		require.NoError(t, err)

		img, _, err := image.Decode(bytes.NewReader(res.Data))
		require.NoError(t, err)
		_, ok := img.(*image.Gray)
		require.True(t, ok, "format %v decoded as %T", format, img)
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		side int
	}{
		{"nil data", nil, 500},
		{"broken image", []byte("not-an-image"), 500},
		{"truncated png", testImage(t, 100, 100, imaging.PNG)[:40], 500},
		{"zero side", testImage(t, 10, 10, imaging.PNG), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.data, tt.side)
			require.Error(t, err)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat(testImage(t, 5, 5, imaging.JPEG))
	require.NoError(t, err)
	require.Equal(t, imaging.JPEG, f)

	_, err = DetectFormat([]byte("xxx"))
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)
}
