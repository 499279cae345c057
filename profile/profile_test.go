package profile

import (
	"path/filepath"
	"testing"

	"github.com/wordtools/wdedup/wio"
)

func writeProfile(t *testing.T, path string, items []Item) uint64 {
	t.Helper()
	f, err := wio.CreateAppend(path, "profile", wio.Buffered)
	if err != nil {
		t.Fatalf("creating profile: %v", err)
	}
	w := NewWriter(f)
	for _, it := range items {
		if err := w.Push(it); err != nil {
			t.Fatalf("pushing %q: %v", it.Word, err)
		}
	}
	size, err := w.Close()
	if err != nil {
		t.Fatalf("closing: %v", err)
	}
	return size
}

func openProfile(t *testing.T, path string) *Reader {
	t.Helper()
	f, err := wio.OpenSequential(path, "profile", 0)
	if err != nil {
		t.Fatalf("opening profile: %v", err)
	}
	r, err := NewReader(f)
	if err != nil {
		t.Fatalf("wrapping reader: %v", err)
	}
	return r
}

func TestWriteReadRoundTrip(t *testing.T) {
	items := []Item{
		{Word: []byte("apple"), Occur: 12},
		{Word: []byte("banana"), Repeated: true},
		{Word: []byte("cherry"), Occur: 900},
	}
	path := filepath.Join(t.TempDir(), "0")
	size := writeProfile(t, path, items)
	// 5+1+1+8 + 6+1+1 + 6+1+1+8
	if size != 39 {
		t.Fatalf("size: got %d, want 39", size)
	}

	r := openProfile(t, path)
	defer r.Close()
	for i, want := range items {
		if r.Empty() {
			t.Fatalf("empty before item %d", i)
		}
		if string(r.Peek().Word) != string(want.Word) {
			t.Fatalf("peek %d: got %q, want %q", i, r.Peek().Word, want.Word)
		}
		got, err := r.Pop()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if string(got.Word) != string(want.Word) || got.Repeated != want.Repeated {
			t.Fatalf("item %d: got %+v, want %+v", i, got, want)
		}
		if !want.Repeated && got.Occur != want.Occur {
			t.Fatalf("item %d occur: got %d, want %d", i, got.Occur, want.Occur)
		}
	}
	if !r.Empty() {
		t.Fatalf("reader not empty after last item")
	}
}

func TestEmptyProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0")
	writeProfile(t, path, nil)
	r := openProfile(t, path)
	defer r.Close()
	if !r.Empty() {
		t.Fatalf("empty profile reads items")
	}
}

func TestSingularFilter(t *testing.T) {
	items := []Item{
		{Word: []byte("aa"), Repeated: true},
		{Word: []byte("bb"), Occur: 3},
		{Word: []byte("cc"), Repeated: true},
		{Word: []byte("dd"), Repeated: true},
		{Word: []byte("ee"), Occur: 9},
		{Word: []byte("ff"), Repeated: true},
	}
	path := filepath.Join(t.TempDir(), "0")
	writeProfile(t, path, items)
	r := openProfile(t, path)
	defer r.Close()
	s, err := NewSingularFilter(r)
	if err != nil {
		t.Fatalf("wrapping filter: %v", err)
	}
	var got []string
	for !s.Empty() {
		it, err := s.Pop()
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if it.Repeated {
			t.Fatalf("repeated item leaked: %q", it.Word)
		}
		got = append(got, string(it.Word))
	}
	if len(got) != 2 || got[0] != "bb" || got[1] != "ee" {
		t.Fatalf("unique items: got %v", got)
	}
}

func TestSingularFilterAllRepeated(t *testing.T) {
	items := []Item{
		{Word: []byte("x"), Repeated: true},
		{Word: []byte("y"), Repeated: true},
	}
	path := filepath.Join(t.TempDir(), "0")
	writeProfile(t, path, items)
	r := openProfile(t, path)
	defer r.Close()
	s, err := NewSingularFilter(r)
	if err != nil {
		t.Fatalf("wrapping filter: %v", err)
	}
	if !s.Empty() {
		t.Fatalf("filter over repeated-only profile not empty")
	}
}
