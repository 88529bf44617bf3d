package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type testDoc struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestStorage_PutAndGet(t *testing.T) {
	s := New(t.TempDir())

	doc := testDoc{Name: "servers", Value: 3}
	if err := s.Put("servers", doc); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(s.BasePath(), "servers.json")); os.IsNotExist(err) {
		t.Fatal("file was not created")
	}

	var got testDoc
	if err := s.Get("servers", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != doc {
		t.Errorf("got %+v, want %+v", got, doc)
	}
}

func TestStorage_GetNotFound(t *testing.T) {
	s := New(t.TempDir())

	var doc testDoc
	if err := s.Get("missing", &doc); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestStorage_GetMalformed(t *testing.T) {
	s := New(t.TempDir())
	if err := os.WriteFile(s.Path("bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var doc testDoc
	if err := s.Get("bad", &doc); err == nil {
		t.Error("expected unmarshal error for malformed file")
	}
}

func TestStorage_Overwrite(t *testing.T) {
	s := New(t.TempDir())

	for i := 0; i < 3; i++ {
		if err := s.Put("doc", testDoc{Name: "n", Value: i}); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}

	var got testDoc
	if err := s.Get("doc", &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 2 {
		t.Errorf("expected last write to win, got %d", got.Value)
	}
}

func TestStorage_Delete(t *testing.T) {
	s := New(t.TempDir())

	if err := s.Put("doc", testDoc{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("doc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Exists("doc") {
		t.Error("document still exists after delete")
	}

	// Deleting a missing file is not an error at this layer.
	if err := s.Delete("doc"); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestStorage_ConcurrentPut(t *testing.T) {
	s := New(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Put("shared", testDoc{Value: i}); err != nil {
				t.Errorf("Put failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var got testDoc
	if err := s.Get("shared", &got); err != nil {
		t.Fatalf("Get after concurrent writes failed: %v", err)
	}
}
