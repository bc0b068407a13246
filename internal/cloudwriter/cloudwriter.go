// Package cloudwriter uploads forecast exports to object storage.
package cloudwriter

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// CloudWriter buffers an object and uploads it on Close.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

type CloudWriterFactory interface {
	NewWriter(bucket, objectPath string) (CloudWriter, error)
}

// UploadFile copies a local file to bucket under prefix/<file name> and
// returns the object key.
func UploadFile(factory CloudWriterFactory, bucket, prefix, localPath string) (string, error) {
	key := path.Join(prefix, filepath.Base(localPath))

	file, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	w, err := factory.NewWriter(bucket, key)
	if err != nil {
		return "", fmt.Errorf("failed to create cloud writer for %s: %w", key, err)
	}
	if _, err := io.Copy(w, file); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to buffer %s: %w", localPath, err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return key, nil
}
