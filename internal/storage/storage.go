// Package storage saves uploaded images and maps them to public URLs.
package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmhlko/post-feed/internal/config"
	"github.com/mmhlko/post-feed/internal/model"
)

var ErrUnknownObject = errors.New("unknown storage object")

type Storage interface {
	Save(ctx context.Context, folder string, upload model.Upload) (string, error)
	Delete(ctx context.Context, url string) error
}

// New builds the storage selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "disk":
		return NewDisk(cfg.Dir, cfg.PublicPrefix)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// objectName returns <unix-ms>-<6 random digits><ext>.
func objectName(filename string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return fmt.Sprintf("%d-%06d%s", now.UnixMilli(), n.Int64(), ext), nil
}

func validFolder(folder string) bool {
	return folder != "" && !strings.ContainsAny(folder, `/\.`)
}
