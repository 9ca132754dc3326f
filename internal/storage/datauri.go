package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotDataURI       = errors.New("not a data uri")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrPhotoTooLarge    = errors.New("photo exceeds size limit")
	ErrMalformedPhoto   = errors.New("malformed photo data")
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
}

// Photo is a decoded data-uri image.
type Photo struct {
	ContentType string
	Ext         string
	Data        []byte
}

// IsDataURI reports whether s looks like a data uri.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// IsRemoteURL reports whether s is an http(s) url that is stored as is.
func IsRemoteURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// DecodeDataURI parses data:<mime>;base64,<payload>. maxBytes <= 0 disables
// the size check.
func DecodeDataURI(s string, maxBytes int64) (*Photo, error) {
	if !IsDataURI(s) {
		return nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, ErrMalformedPhoto
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, fmt.Errorf("%w: payload must be base64", ErrMalformedPhoto)
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	ext, ok := imageExtensions[mime]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, mime)
	}

	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, ErrPhotoTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPhoto, err)
	}
	if len(data) == 0 {
		return nil, ErrMalformedPhoto
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrPhotoTooLarge
	}

	if mime == "image/jpg" {
		mime = "image/jpeg"
	}
	return &Photo{ContentType: mime, Ext: ext, Data: data}, nil
}

// NewObjectName returns {trackingID}/{uuid}.{ext}.
func NewObjectName(trackingID, ext string) string {
	return trackingID + "/" + uuid.NewString() + "." + ext
}
