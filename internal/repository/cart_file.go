package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"storefront_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type fileCartRepository struct {
	dir string
	log *logrus.Logger
}

// NewFileCartRepository stores one JSON record per key under dir, creating
// the directory if needed.
func NewFileCartRepository(dir string, logger *logrus.Logger) (domain.CartRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create cart directory %s: %w", dir, err)
	}
	return &fileCartRepository{dir: dir, log: logger}, nil
}

func (r *fileCartRepository) path(key string) string {
	return filepath.Join(r.dir, url.PathEscape(key)+".json")
}

func (r *fileCartRepository) Load(ctx context.Context, key string) (*domain.CartState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCartNotFound
		}
		r.log.Errorf("Failed to read cart file for key %s: %v", key, err)
		return nil, fmt.Errorf("could not read cart: %w", err)
	}
	return DecodeCart(data)
}

// Save writes to a temp file and renames it over the record, so a reader
// never sees a partial write.
func (r *fileCartRepository) Save(ctx context.Context, key string, state domain.CartState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeCart(state)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, "cart-*.tmp")
	if err != nil {
		return fmt.Errorf("could not save cart: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not save cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not save cart: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path(key)); err != nil {
		r.log.Errorf("Failed to save cart file for key %s: %v", key, err)
		return fmt.Errorf("could not save cart: %w", err)
	}
	r.log.Debugf("Cart saved to file for key %s", key)
	return nil
}

func (r *fileCartRepository) Delete(_ context.Context, key string) error {
	err := os.Remove(r.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Errorf("Failed to delete cart file for key %s: %v", key, err)
		return fmt.Errorf("could not delete cart: %w", err)
	}
	return nil
}
