// Package qrcode renders trader identity payloads as PNG images.
package qrcode

import (
	"errors"
	"fmt"

	levyapp "github.com/marketlevy/backend/internal/application/levy"
	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels used when none is configured
const DefaultSize = 256

var _ levyapp.QREncoder = (*Encoder)(nil)

// Encoder renders square PNG QR codes at a fixed size and recovery level
type Encoder struct {
	size  int
	level goqrcode.RecoveryLevel
}

// Option configures an Encoder
type Option func(*Encoder)

// WithRecoveryLevel overrides the default medium error correction
func WithRecoveryLevel(level goqrcode.RecoveryLevel) Option {
	return func(e *Encoder) {
		e.level = level
	}
}

// NewEncoder creates an encoder producing size x size images
func NewEncoder(size int, opts ...Option) *Encoder {
	if size <= 0 {
		size = DefaultSize
	}
	e := &Encoder{size: size, level: goqrcode.Medium}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EncodePNG renders content as a PNG
func (e *Encoder) EncodePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr content is empty")
	}
	png, err := goqrcode.Encode(content, e.level, e.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// Size returns the configured edge length
func (e *Encoder) Size() int {
	return e.size
}
