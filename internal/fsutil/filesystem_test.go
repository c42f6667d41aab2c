package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_OpenAppend(t *testing.T) {
	osfs := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "ir.csv")

	if err := osfs.WriteFile(path, []byte("1.000000\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := osfs.OpenAppend(path, false)
	if err != nil {
		t.Fatalf("OpenAppend failed: %v", err)
	}
	if _, err := f.Write([]byte("2.000000\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := osfs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "1.000000\n2.000000\n" {
		t.Errorf("append content = %q", data)
	}
}

func TestOSFileSystem_OpenAppendTruncate(t *testing.T) {
	osfs := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "ir.csv")

	if err := osfs.WriteFile(path, []byte("stale\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := osfs.OpenAppend(path, true)
	if err != nil {
		t.Fatalf("OpenAppend failed: %v", err)
	}
	if _, err := f.Write([]byte("fresh\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f.Close()

	data, _ := osfs.ReadFile(path)
	if string(data) != "fresh\n" {
		t.Errorf("truncated content = %q", data)
	}
}

func TestOSFileSystem_OpenAppendMissingDir(t *testing.T) {
	osfs := OSFileSystem{}
	_, err := osfs.OpenAppend(filepath.Join(t.TempDir(), "missing", "ir.csv"), false)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestOSFileSystem_MkdirAll(t *testing.T) {
	fs := OSFileSystem{}
	nestedDir := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := fs.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	if !fs.Exists(nestedDir) {
		t.Error("expected nested directory to exist")
	}

	info, err := fs.Stat(nestedDir)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory")
	}
}

func TestOSFileSystem_Open(t *testing.T) {
	osfs := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "capture.txt")

	if err := osfs.WriteFile(path, []byte("100,200\r\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := osfs.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "100,200\r\n" {
		t.Errorf("got %q", data)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_OpenAppend(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/ir.csv", []byte("a\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := mfs.OpenAppend("/ir.csv", false)
	if err != nil {
		t.Fatalf("OpenAppend failed: %v", err)
	}

	if _, err := f.Write([]byte("b\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Writes are visible before Close.
	data, _ := mfs.ReadFile("/ir.csv")
	if string(data) != "a\nb\n" {
		t.Errorf("content before close = %q", data)
	}

	if err := f.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if got := mfs.SyncCount("/ir.csv"); got != 1 {
		t.Errorf("SyncCount = %d, want 1", got)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := f.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if _, err := f.Write([]byte("c\n")); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryFileSystem_OpenAppendTruncate(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/ir.csv", []byte("stale\n"), 0644)

	f, err := mfs.OpenAppend("/ir.csv", true)
	if err != nil {
		t.Fatalf("OpenAppend failed: %v", err)
	}
	defer f.Close()

	data, _ := mfs.ReadFile("/ir.csv")
	if len(data) != 0 {
		t.Errorf("expected empty file after truncate, got %q", data)
	}
}

func TestMemoryFileSystem_OpenAppendMissingDir(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.OpenAppend("/data/ir.csv", false); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	mfs.MkdirAll("/data", 0755)
	f, err := mfs.OpenAppend("/data/ir.csv", false)
	if err != nil {
		t.Fatalf("OpenAppend after MkdirAll failed: %v", err)
	}
	f.Close()
}

func TestMemoryFileSystem_FailureInjection(t *testing.T) {
	mfs := NewMemoryFileSystem()
	diskFull := errors.New("no space left on device")

	mfs.FailOpen("/ir.csv", diskFull)
	if _, err := mfs.OpenAppend("/ir.csv", false); !errors.Is(err, diskFull) {
		t.Fatalf("OpenAppend = %v, want injected error", err)
	}
	mfs.FailOpen("/ir.csv", nil)

	f, err := mfs.OpenAppend("/ir.csv", false)
	if err != nil {
		t.Fatalf("OpenAppend failed: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("1\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	mfs.FailWrites("/ir.csv", diskFull)
	n, err := f.Write([]byte("2\n"))
	if !errors.Is(err, diskFull) || n != 0 {
		t.Fatalf("Write = (%d, %v), want (0, injected error)", n, err)
	}

	mfs.FailSync("/ir.csv", diskFull)
	if err := f.Sync(); !errors.Is(err, diskFull) {
		t.Errorf("Sync = %v, want injected error", err)
	}

	data, _ := mfs.ReadFile("/ir.csv")
	if string(data) != "1\n" {
		t.Errorf("failed write must leave no partial record, got %q", data)
	}

	mfs.FailWrites("/ir.csv", nil)
	if _, err := f.Write([]byte("3\n")); err != nil {
		t.Errorf("Write after clearing failure: %v", err)
	}
}

func TestMemoryFileSystem_Open(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/readable.txt", []byte("readable content"), 0644)

	f, err := mfs.Open("/readable.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "readable content" {
		t.Errorf("got %q", data)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "readable.txt" {
		t.Errorf("expected name 'readable.txt', got %q", info.Name())
	}
}

func TestMemoryFileSystem_OpenNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Open("/nonexistent.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/stat.txt", []byte("12345"), 0600)
	mfs.MkdirAll("/a/b", 0755)

	info, err := mfs.Stat("/stat.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 5 || info.Mode() != 0600 || info.IsDir() {
		t.Errorf("unexpected file info: size=%d mode=%v dir=%v", info.Size(), info.Mode(), info.IsDir())
	}

	for _, dir := range []string{"/a", "/a/b"} {
		info, err := mfs.Stat(dir)
		if err != nil {
			t.Fatalf("Stat(%s) failed: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("Stat(%s) not a directory", dir)
		}
	}

	if _, err := mfs.Stat("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_PathCleaning(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/a/../b/./c.txt", []byte("x"), 0644)

	if !mfs.Exists("/b/c.txt") {
		t.Error("expected cleaned path to exist")
	}
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	mfs := NewMemoryFileSystem()

	original := []byte("original")
	mfs.WriteFile("/isolated.txt", original, 0644)
	original[0] = 'X'

	data, err := mfs.ReadFile("/isolated.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if data[0] != 'o' {
		t.Error("expected data to be isolated from original slice")
	}

	data[0] = 'Y'
	data2, _ := mfs.ReadFile("/isolated.txt")
	if data2[0] != 'o' {
		t.Error("expected read data to be isolated")
	}
}

func TestMemoryFileSystem_ReadNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadFile("/nonexistent.txt")
	pathErr, ok := err.(*os.PathError)
	if !ok {
		t.Fatalf("expected *os.PathError, got %T", err)
	}
	if pathErr.Op != "read" {
		t.Errorf("expected Op 'read', got %q", pathErr.Op)
	}
}
