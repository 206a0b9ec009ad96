package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FileStorage keeps document bytes and hands back an opaque reference.
type FileStorage interface {
	Save(ctx context.Context, ownerID, documentTypeID int64, content []byte, originalName string) (string, error)
	Remove(ctx context.Context, ref string) error
}

// LocalStorage writes files under a root directory, one folder per owner.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (l *LocalStorage) Save(_ context.Context, ownerID, documentTypeID int64, content []byte, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	ref := filepath.Join(strconv.FormatInt(ownerID, 10),
		fmt.Sprintf("%d_%s%s", documentTypeID, uuid.NewString(), ext))

	full := filepath.Join(l.root, ref)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create owner dir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o640); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return filepath.ToSlash(ref), nil
}

func (l *LocalStorage) Remove(_ context.Context, ref string) error {
	full := filepath.Join(l.root, filepath.FromSlash(ref))
	if !strings.HasPrefix(full, filepath.Clean(l.root)+string(filepath.Separator)) {
		return fmt.Errorf("reference %q escapes storage root", ref)
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
