package storage

import (
	"context"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

type localStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage stores files under root and links them as baseURL/<key>.
func NewLocalStorage(root, baseURL string) Storage {
	return &localStorage{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
	}
}

func (l *localStorage) UploadFile(ctx context.Context, fileName string, file *multipart.FileHeader, folder string, allowedMimetype ...string) (string, error) {
	data, err := readMultipart(file)
	if err != nil {
		return "", err
	}
	return l.UploadBytes(ctx, fileName, data, folder, allowedMimetype...)
}

func (l *localStorage) UploadBytes(_ context.Context, fileName string, data []byte, folder string, allowedMimetype ...string) (string, error) {
	if _, err := checkMimetype(data, allowedMimetype...); err != nil {
		return "", err
	}

	key := objectKey(folder, filepath.Base(fileName))
	path := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return key, nil
}

func (l *localStorage) DeleteFile(_ context.Context, objectKey string) error {
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(objectKey)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (l *localStorage) GetObjectKeyFromLink(link string) string {
	if !strings.HasPrefix(link, l.baseURL) {
		return ""
	}
	return strings.TrimPrefix(link, l.baseURL)
}

func (l *localStorage) GetPublicLinkKey(objectKey string) string {
	return l.baseURL + objectKey
}
