package storage

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
)

const (
	FolderProducts       = "products"
	FolderProofs         = "proofs"
	FolderCustomizations = "customizations"
)

type PutInput struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
}

type PutResult struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Delete(ctx context.Context, key string) error
	// FolderURL is the public URL prefix, ending in "/", of objects stored under folder.
	FolderURL(folder string) string
}

// OwnsURL reports whether raw is the public URL of an object Put stored
// directly under folder.
func OwnsURL(s Storage, folder, raw string) bool {
	prefix := s.FolderURL(folder)
	if cleanFolder(folder) == "" || !strings.HasPrefix(raw, prefix) {
		return false
	}
	name := strings.TrimPrefix(raw, prefix)
	ext := safeExt(name)
	if ext == "" {
		return false
	}
	id := strings.TrimSuffix(name, ext)
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func objectKey(folder, filename string) string {
	key := newName() + safeExt(filename)
	if f := cleanFolder(folder); f != "" {
		key = f + "/" + key
	}
	return key
}
