package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid data URI image")

const dataURIImagePrefix = "data:image/"

// IsDataURIImage reports whether s looks like data:image/<ext>;base64,<payload>.
func IsDataURIImage(s string) bool {
	return strings.HasPrefix(s, dataURIImagePrefix)
}

// DecodeDataURIImage splits a data:image/<ext>;base64,<payload> string into
// the decoded bytes and the declared extension.
func DecodeDataURIImage(s string) ([]byte, string, error) {
	if !IsDataURIImage(s) {
		return nil, "", ErrInvalidDataURI
	}
	header, payload, found := strings.Cut(s, ";base64,")
	if !found {
		return nil, "", ErrInvalidDataURI
	}
	ext := strings.ToLower(strings.TrimPrefix(header, dataURIImagePrefix))
	if ext == "" || strings.ContainsAny(ext, "/;,. ") {
		return nil, "", ErrInvalidDataURI
	}
	if ext == "jpeg" {
		ext = "jpg"
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, "", errors.Join(ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return nil, "", ErrInvalidDataURI
	}
	return data, ext, nil
}
