package logio

import (
	"path/filepath"
	"testing"
)

func TestWriter_AppendTracksOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.log")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error = %v", err)
	}
	defer w.Close()

	pre, post, err := w.Append([]byte("hello"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if pre != 0 || post != 5 {
		t.Errorf("Append() = (%d, %d), want (0, 5)", pre, post)
	}

	pre, post, err = w.Append([]byte("!!"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if pre != 5 || post != 7 {
		t.Errorf("Append() = (%d, %d), want (5, 7)", pre, post)
	}
}

func TestWriter_ReopenContinuesOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.log")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error = %v", err)
	}
	if _, _, err := w.Append([]byte("0123456789")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w2, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() (reopen) error = %v", err)
	}
	defer w2.Close()
	if w2.Pos() != 10 {
		t.Errorf("Pos() after reopen = %v, want 10", w2.Pos())
	}
}

func TestReader_ReadExact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.log")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error = %v", err)
	}
	if _, _, err := w.Append([]byte("abcdefgh")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer r.Close()

	if err := r.SeekTo(2); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	got, err := r.ReadExact(4)
	if err != nil {
		t.Fatalf("ReadExact() error = %v", err)
	}
	if string(got) != "cdef" {
		t.Errorf("ReadExact() = %q, want %q", got, "cdef")
	}
	if r.Pos() != 6 {
		t.Errorf("Pos() = %v, want 6", r.Pos())
	}
}

func TestReader_ReadExactPastEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.log")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error = %v", err)
	}
	if _, _, err := w.Append([]byte("ab")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer r.Close()

	if _, err := r.ReadExact(10); err == nil {
		t.Error("ReadExact() error = nil, want error for short read")
	}
}
