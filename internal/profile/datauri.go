// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxPhotoBytes is the largest decoded photo accepted for identification.
const MaxPhotoBytes = 4 << 20

var (
	// ErrInvalidPhoto reports a photo that is not a base64 image data URI.
	ErrInvalidPhoto = errors.New("photo must be a base64 image data URI (data:<mimetype>;base64,<data>)")

	// ErrPhotoTooLarge reports a photo over MaxPhotoBytes.
	ErrPhotoTooLarge = errors.New("photo exceeds 4MB")
)

// Media is an inline binary payload with its MIME type.
type Media struct {
	MIMEType string
	Data     []byte
}

// DataURI encodes m as "data:<mimetype>;base64,<data>".
func (m Media) DataURI() string {
	return "data:" + m.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}

// ParsePhoto decodes a photo data URI. Only image MIME types are accepted.
func ParsePhoto(uri string) (Media, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return Media{}, ErrInvalidPhoto
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Media{}, ErrInvalidPhoto
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return Media{}, ErrInvalidPhoto
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") || len(mimeType) == len("image/") {
		return Media{}, ErrInvalidPhoto
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxPhotoBytes+3 {
		return Media{}, ErrPhotoTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Media{}, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if len(data) == 0 {
		return Media{}, ErrInvalidPhoto
	}
	if len(data) > MaxPhotoBytes {
		return Media{}, ErrPhotoTooLarge
	}
	return Media{MIMEType: mimeType, Data: data}, nil
}
