package storage

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestDecodeDataURIImage(t *testing.T) {
	data, ext, err := DecodeDataURIImage("data:image/png;base64," + onePixelPNG)
	require.NoError(t, err)
	assert.Equal(t, "png", ext)
	assert.NotEmpty(t, data)

	_, ext, err = DecodeDataURIImage("data:image/JPEG;base64," + onePixelPNG)
	require.NoError(t, err)
	assert.Equal(t, "jpg", ext)
}

func TestDecodeDataURIImageRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"https://example.com/a.png",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png," + onePixelPNG,
		"data:image/;base64," + onePixelPNG,
		"data:image/../x;base64," + onePixelPNG,
		"data:image/png;base64,!!!",
		"data:image/png;base64,",
	} {
		_, _, err := DecodeDataURIImage(input)
		assert.ErrorIs(t, err, ErrInvalidDataURI, input)
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStorage(root, "http://testserver/media/")
	data, err := base64.StdEncoding.DecodeString(onePixelPNG)
	require.NoError(t, err)

	key, err := store.UploadBytes(context.Background(), "pixel.png", data, "recipes/images", AllowImage...)
	require.NoError(t, err)
	assert.Equal(t, "recipes/images/pixel.png", key)
	assert.FileExists(t, filepath.Join(root, "recipes", "images", "pixel.png"))

	link := store.GetPublicLinkKey(key)
	assert.Equal(t, "http://testserver/media/recipes/images/pixel.png", link)
	assert.Equal(t, key, store.GetObjectKeyFromLink(link))
	assert.Empty(t, store.GetObjectKeyFromLink("https://elsewhere/pixel.png"))

	require.NoError(t, store.DeleteFile(context.Background(), key))
	_, err = os.Stat(filepath.Join(root, "recipes", "images", "pixel.png"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.DeleteFile(context.Background(), key))
}

func TestLocalStorageRejectsNonImages(t *testing.T) {
	store := NewLocalStorage(t.TempDir(), "http://testserver/media")

	_, err := store.UploadBytes(context.Background(), "notes.png", []byte("plain text, not a picture"), "recipes/images", AllowImage...)
	assert.ErrorIs(t, err, ErrFileTypeNotAllowed)

	_, err = store.UploadBytes(context.Background(), "empty.png", nil, "recipes/images", AllowImage...)
	assert.ErrorIs(t, err, ErrEmptyFile)
}
