package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

var (
	AllowImage = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrEmptyFile          = errors.New("file is empty")
)

// Storage keeps uploaded binary assets and hands back public links to them.
type Storage interface {
	UploadFile(ctx context.Context, fileName string, file *multipart.FileHeader, folder string, allowedMimetype ...string) (string, error)
	UploadBytes(ctx context.Context, fileName string, data []byte, folder string, allowedMimetype ...string) (string, error)
	DeleteFile(ctx context.Context, objectKey string) error
	GetObjectKeyFromLink(link string) string
	GetPublicLinkKey(objectKey string) string
}

// checkMimetype sniffs data and returns its detected content type when it is
// one of allowed (or when allowed is empty).
func checkMimetype(data []byte, allowed ...string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	detected := mimetype.Detect(data)
	if len(allowed) == 0 {
		return detected.String(), nil
	}
	for _, mt := range allowed {
		if detected.Is(mt) {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, detected.String())
}

func readMultipart(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func objectKey(folder, fileName string) string {
	if folder == "" {
		return fileName
	}
	return folder + "/" + fileName
}
