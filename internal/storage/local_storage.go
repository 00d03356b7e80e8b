package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage trzyma bloby dokumentów na lokalnym dysku. Odnośnik
// (storage ref) to nieprzezroczysty identyfikator; dwa pierwsze znaki
// wyznaczają podkatalog, żeby nie składować wszystkiego płasko.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) pathFromRef(ref string) string {
	if len(ref) < 2 {
		return filepath.Join(ls.basePath, ref)
	}
	return filepath.Join(ls.basePath, ref[:2], ref)
}

func (ls *LocalStorage) Save(ref string, data io.Reader) (int64, error) {
	filePath := ls.pathFromRef(ref)

	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return 0, err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return io.Copy(file, data)
}

func (ls *LocalStorage) Get(ref string) (io.ReadCloser, error) {
	filePath := ls.pathFromRef(ref)

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s not found: %w", ref, err)
		}
		return nil, err
	}

	return file, nil
}

// Release usuwa blob. Zwolnienie nieistniejącego odnośnika jest
// poprawne i nic nie robi.
func (ls *LocalStorage) Release(ref string) error {
	err := os.Remove(ls.pathFromRef(ref))
	if os.IsNotExist(err) {
		return nil
	}

	return err
}
