// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging re-encodes generated product images before they are
// uploaded. Image models return large PNGs; WebP or JPEG output keeps the
// blog and pin assets small.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register the PNG decoder
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"golang.org/x/image/draw"
)

// Format is an output encoding.
type Format string

const (
	FormatOriginal Format = "original" // keep the provider's bytes
	FormatJPEG     Format = "jpeg"
	FormatWebP     Format = "webp"
)

// DefaultQuality is used when a quality outside 1..100 is requested.
const DefaultQuality = 85

// ParseFormat validates a format name from configuration.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatOriginal, FormatJPEG, FormatWebP:
		return f, nil
	case "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("imaging: unknown format %q", s)
	}
}

// Encoded is an image ready for upload.
type Encoded struct {
	Data        []byte
	ContentType string
	Ext         string // file extension without the dot
	Width       int    // 0 when the original bytes are passed through
	Height      int
}

// Options controls Encode.
type Options struct {
	Format   Format
	Quality  int // 1..100, DefaultQuality otherwise
	MaxWidth int // downscale wider images; 0 keeps the original size
}

// Encode converts data according to opts. contentType describes data and
// is only used when the original bytes are kept.
func Encode(data []byte, contentType string, opts Options) (*Encoded, error) {
	f, quality := opts.Format, opts.Quality
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	if f == FormatOriginal || f == "" {
		return &Encoded{Data: data, ContentType: contentType, Ext: ExtFor(contentType)}, nil
	}

	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	img = fit(img, opts.MaxWidth)
	b := img.Bounds()

	var out bytes.Buffer
	switch f {
	case FormatJPEG:
		if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
		}
		return &Encoded{Data: out.Bytes(), ContentType: "image/jpeg", Ext: "jpg", Width: b.Dx(), Height: b.Dy()}, nil
	case FormatWebP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetPhoto, float32(quality))
		if err != nil {
			return nil, fmt.Errorf("imaging: webp options: %w", err)
		}
		if err := webp.Encode(&out, img, opts); err != nil {
			return nil, fmt.Errorf("imaging: encode webp: %w", err)
		}
		return &Encoded{Data: out.Bytes(), ContentType: "image/webp", Ext: "webp", Width: b.Dx(), Height: b.Dy()}, nil
	default:
		return nil, fmt.Errorf("imaging: unknown format %q", f)
	}
}

// ExtFor maps an image MIME type to a file extension.
func ExtFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

func decode(data []byte) (image.Image, error) {
	if isWebP(data) {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// fit scales img down to maxWidth, keeping the aspect ratio.
func fit(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
