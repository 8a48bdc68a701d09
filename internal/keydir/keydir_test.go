package keydir

import (
	"fmt"
	"sync"
	"testing"
)

func TestDir_InsertGetRemove(t *testing.T) {
	d := New()

	if _, ok := d.Get("missing"); ok {
		t.Error("Get() on empty dir found a key")
	}

	meta := Meta{FileID: 1, Offset: 10, Length: 20}
	if _, had := d.Insert("k", meta); had {
		t.Error("Insert() reported a previous value for a new key")
	}

	got, ok := d.Get("k")
	if !ok || got != meta {
		t.Errorf("Get() = (%+v, %v), want (%+v, true)", got, ok, meta)
	}

	meta2 := Meta{FileID: 2, Offset: 0, Length: 5}
	old, had := d.Insert("k", meta2)
	if !had || old != meta {
		t.Errorf("Insert() old = (%+v, %v), want (%+v, true)", old, had, meta)
	}

	removed, had := d.Remove("k")
	if !had || removed != meta2 {
		t.Errorf("Remove() = (%+v, %v), want (%+v, true)", removed, had, meta2)
	}

	if _, ok := d.Get("k"); ok {
		t.Error("Get() found key after Remove()")
	}

	if _, had := d.Remove("k"); had {
		t.Error("Remove() on absent key reported a previous value")
	}
}

func TestDir_Len(t *testing.T) {
	d := New()
	for i := 0; i < 100; i++ {
		d.Insert(fmt.Sprintf("key-%d", i), Meta{FileID: 1, Offset: int64(i), Length: 1})
	}
	if got := d.Len(); got != 100 {
		t.Errorf("Len() = %v, want 100", got)
	}
	d.Remove("key-0")
	if got := d.Len(); got != 99 {
		t.Errorf("Len() after Remove = %v, want 99", got)
	}
}

func TestDir_RangeRewrites(t *testing.T) {
	d := New()
	for i := 0; i < 10; i++ {
		d.Insert(fmt.Sprintf("key-%d", i), Meta{FileID: 1, Offset: int64(i * 10), Length: 10})
	}

	d.Range(func(key string, meta Meta) (Meta, bool) {
		meta.FileID = 2
		return meta, true
	})

	for i := 0; i < 10; i++ {
		got, ok := d.Get(fmt.Sprintf("key-%d", i))
		if !ok || got.FileID != 2 {
			t.Errorf("key-%d = %+v, want FileID 2", i, got)
		}
	}
}

func TestDir_ConcurrentAccess(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			d.Insert(key, Meta{FileID: 1, Offset: int64(i), Length: 1})
			if _, ok := d.Get(key); !ok {
				t.Errorf("Get(%q) missing after concurrent Insert", key)
			}
		}(i)
	}
	wg.Wait()

	if got := d.Len(); got != 50 {
		t.Errorf("Len() = %v, want 50", got)
	}
}
