package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmhlko/post-feed/internal/model"
)

// Disk writes files under dir and serves them below publicPrefix.
type Disk struct {
	dir          string
	publicPrefix string
	now          func() time.Time
}

func NewDisk(dir, publicPrefix string) (*Disk, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	if publicPrefix == "" {
		publicPrefix = "/uploads"
	}
	return &Disk{
		dir:          dir,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		now:          time.Now,
	}, nil
}

func (d *Disk) Dir() string {
	return d.dir
}

func (d *Disk) PublicPrefix() string {
	return d.publicPrefix
}

func (d *Disk) Save(ctx context.Context, folder string, upload model.Upload) (string, error) {
	if !validFolder(folder) {
		return "", fmt.Errorf("invalid storage folder %q", folder)
	}
	name, err := objectName(upload.Filename, d.now())
	if err != nil {
		return "", err
	}

	target := filepath.Join(d.dir, folder)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, name), upload.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path.Join(d.publicPrefix, folder, name), nil
}

func (d *Disk) Delete(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, d.publicPrefix+"/")
	if !ok || rel == "" {
		return ErrUnknownObject
	}
	cleaned := path.Clean("/" + rel)[1:]
	if cleaned != rel {
		return ErrUnknownObject
	}

	err := os.Remove(filepath.Join(d.dir, filepath.FromSlash(cleaned)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
