package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shashiranjanraj/kisanbazaar/config"
)

// FileStore writes each key to its own file under root.
type FileStore struct {
	root string // absolute root directory
}

// NewFileStore returns a FileStore rooted at root, or at LOCAL_STORE_ROOT
// when root is empty. Relative roots resolve against the user's home
// directory, falling back to the working directory.
func NewFileStore(root string) *FileStore {
	if root == "" {
		root = config.LocalStoreRoot()
	}
	if !filepath.IsAbs(root) {
		base, err := os.UserHomeDir()
		if err != nil {
			base, _ = os.Getwd()
		}
		root = filepath.Join(base, root)
	}
	return &FileStore{root: root}
}

// Root returns the absolute directory holding the entries.
func (d *FileStore) Root() string { return d.root }

func (d *FileStore) abs(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("localstore/file: invalid key %q", key)
	}
	return filepath.Join(d.root, key+".json"), nil
}

func (d *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	full, err := d.abs(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localstore/file: get %s: %w", key, err)
	}
	return data, nil
}

// Set writes to a temp file and renames it into place so a crash never leaves
// a half-written entry behind.
func (d *FileStore) Set(_ context.Context, key string, value []byte) error {
	full, err := d.abs(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.root, 0o700); err != nil {
		return fmt.Errorf("localstore/file: mkdir: %w", err)
	}

	f, err := os.CreateTemp(d.root, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("localstore/file: create %s: %w", key, err)
	}
	tmp := f.Name()
	if _, err := f.Write(value); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("localstore/file: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("localstore/file: close %s: %w", key, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("localstore/file: rename %s: %w", key, err)
	}
	return nil
}

func (d *FileStore) Delete(_ context.Context, key string) error {
	full, err := d.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("localstore/file: delete %s: %w", key, err)
	}
	return nil
}
