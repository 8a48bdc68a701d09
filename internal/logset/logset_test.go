package logset

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
}

func TestList_SortedAscendingIgnoringJunk(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "3.log")
	touch(t, dir, "1.log")
	touch(t, dir, "2.log")
	touch(t, dir, "engine")
	touch(t, dir, "notes.txt")
	touch(t, dir, "abc.log")

	ids, err := List(dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []uint64{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("List() = %v, want %v", ids, want)
	}
	for i, id := range ids {
		if id != want[i] {
			t.Errorf("List()[%d] = %v, want %v", i, id, want[i])
		}
	}
}

func TestList_EmptyDir(t *testing.T) {
	ids, err := List(t.TempDir())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() = %v, want empty", ids)
	}
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name     string
		existing []uint64
		want     uint64
	}{
		{name: "empty", existing: nil, want: 1},
		{name: "single", existing: []uint64{1}, want: 2},
		{name: "unordered", existing: []uint64{5, 1, 3}, want: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextID(tt.existing); got != tt.want {
				t.Errorf("NextID(%v) = %v, want %v", tt.existing, got, tt.want)
			}
		})
	}
}

func TestRemove_MissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	if err := Remove(dir, 42); err != nil {
		t.Errorf("Remove() on missing file error = %v, want nil", err)
	}
}

func TestRemove_DeletesFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "7.log")
	if err := Remove(dir, 7); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(Path(dir, 7)); !os.IsNotExist(err) {
		t.Error("file still exists after Remove()")
	}
}
