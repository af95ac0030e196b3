// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
)

const (
	// DefaultJPEGQuality matches typical browser canvas JPEG output.
	DefaultJPEGQuality = 90

	// DefaultMinPayloadBytes is the smallest data URL accepted as a real frame.
	DefaultMinPayloadBytes = 50

	// dataURLPrefix is what the face endpoint expects at the start of the payload.
	dataURLPrefix = "data:image/jpeg;base64,"
)

// ErrInvalidDataURL is returned when a payload is not a base64 image data URL.
var ErrInvalidDataURL = errors.New("invalid image data URL")

// ImageBlob is a still frame encoded for transport.
type ImageBlob struct {
	DataURL string
	Width   int
	Height  int
}

// Len returns the payload length in bytes.
func (b ImageBlob) Len() int { return len(b.DataURL) }

// Encoder turns frames into JPEG data URLs.
type Encoder struct {
	Quality         int
	MinPayloadBytes int
}

// DefaultEncoder returns the default encoder settings.
func DefaultEncoder() Encoder {
	return Encoder{Quality: DefaultJPEGQuality, MinPayloadBytes: DefaultMinPayloadBytes}
}

// Encode renders img as a JPEG data URL.
func (e Encoder) Encode(img image.Image) (ImageBlob, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.Quality}); err != nil {
		return ImageBlob{}, fmt.Errorf("jpeg encode: %w", err)
	}

	b := img.Bounds()
	return ImageBlob{
		DataURL: dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

// DecodeDataURL decodes a base64 image data URL back into an image.
// Any registered image format is accepted.
func DecodeDataURL(s string) (image.Image, string, error) {
	if !strings.HasPrefix(s, "data:image/") {
		return nil, "", ErrInvalidDataURL
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
		return nil, "", ErrInvalidDataURL
	}

	raw, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return img, format, nil
}
