package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)
	require.NotNil(t, storage)
	require.Equal(t, tempDir, storage.basePath)

	// Sprawdź, czy katalog został utworzony
	_, err = os.Stat(tempDir)
	require.NoError(t, err, "Base directory should be created")
}

func TestLocalStorage_SaveGetRelease(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	ref := "test_blob_ref_12345"
	content := "Hello, world!"
	contentReader := strings.NewReader(content)

	// --- Test Save ---
	written, err := storage.Save(ref, contentReader)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), written)

	// Plik ląduje w podkatalogu wyznaczonym przez dwa pierwsze znaki odnośnika
	expectedPath := filepath.Join(tempDir, ref[:2], ref)
	fileInfo, err := os.Stat(expectedPath)
	require.NoError(t, err, "File should exist after save")
	require.Equal(t, int64(len(content)), fileInfo.Size())

	// --- Test Get ---
	readCloser, err := storage.Get(ref)
	require.NoError(t, err)

	// Odczytaj zawartość i porównaj
	retrievedContent, err := io.ReadAll(readCloser)
	require.NoError(t, err)
	readCloser.Close()
	require.Equal(t, content, string(retrievedContent))

	// --- Test Release ---
	err = storage.Release(ref)
	require.NoError(t, err)

	// Sprawdź, czy plik został usunięty
	_, err = os.Stat(expectedPath)
	require.Error(t, err)
	require.True(t, os.IsNotExist(err), "File should not exist after release")
}

func TestLocalStorage_GetNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	_, err = storage.Get("non_existent_ref")
	require.Error(t, err)
}

func TestLocalStorage_ReleaseNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	// Zwolnienie nieistniejącego bloba nie powinno zwracać błędu
	err = storage.Release("non_existent_ref")
	require.NoError(t, err)
}

func TestLocalStorage_ShortRef(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	// Odnośnik krótszy niż dwa znaki trafia wprost do katalogu bazowego
	_, err = storage.Save("a", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tempDir, "a"))
	require.NoError(t, err)
}

func TestLocalStorage_SaveWithLargeData(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	ref := "large_blob_ref"
	// Stwórz duży bufor w pamięci (1 MB)
	largeContent := make([]byte, 1024*1024)
	for i := range largeContent {
		largeContent[i] = 'a'
	}
	contentReader := bytes.NewReader(largeContent)

	written, err := storage.Save(ref, contentReader)
	require.NoError(t, err)
	require.Equal(t, int64(len(largeContent)), written)
}
