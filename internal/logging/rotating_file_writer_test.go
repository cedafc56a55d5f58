package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingFileWriter_RotatesAndKeepsBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	w, err := NewRotatingFileWriter(path, 10, 2)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer w.Close()

	for _, line := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	cur, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if string(cur) != "cccccccc\n" {
		t.Fatalf("current = %q", cur)
	}
	first, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("read .1: %v", err)
	}
	if string(first) != "bbbbbbbb\n" {
		t.Fatalf(".1 = %q", first)
	}
	second, err := os.ReadFile(path + ".2")
	if err != nil {
		t.Fatalf("read .2: %v", err)
	}
	if string(second) != "aaaaaaaa\n" {
		t.Fatalf(".2 = %q", second)
	}
}

func TestRotatingFileWriter_RejectsBadArgs(t *testing.T) {
	if _, err := NewRotatingFileWriter("", 10, 1); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewRotatingFileWriter(filepath.Join(t.TempDir(), "x.log"), 0, 1); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestRotatingFileWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingFileWriter(filepath.Join(t.TempDir(), "x.log"), 100, 1)
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := w.Write([]byte("late")); err == nil {
		t.Fatal("expected error after close")
	}
}
