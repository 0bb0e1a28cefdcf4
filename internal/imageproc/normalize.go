// Package imageproc provides the one transform every upload goes through: fixed-size grayscale normalization.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/disintegration/imaging"
)

type Processed struct {
	Data   []byte
	Format imaging.Format
	Width  int
	Height int
}

func (p *Processed) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

func (p *Processed) ContentType() string {
	return model.GetCType[p.Format]
}

// Normalize - ресайз до side x side (без сохранения пропорций) и перевод в одноканальный grayscale.
// Формат контейнера остается исходным.
func Normalize(data []byte, side int) (*Processed, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data provided to Normalize")
	}
	if side <= 0 {
		return nil, fmt.Errorf("incorrect target side %d", side)
	}

	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to DEcode source image in Normalize: %w", err)
	}

	resized := imaging.Resize(img, side, side, imaging.Lanczos)
	gray := image.NewGray(resized.Bounds())
	draw.Draw(gray, gray.Bounds(), resized, resized.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, format); err != nil {
		return nil, fmt.Errorf("failed to ENcode result image in Normalize: %w", err)
	}

	// размеры берем из того, что реально будет записано
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to read back encoded image: %w", err)
	}

	return &Processed{
		Data:   buf.Bytes(),
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// DetectFormat - проверяет, что данные являются изображением поддерживаемого формата
func DetectFormat(data []byte) (imaging.Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return -1, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	return format, nil
}
