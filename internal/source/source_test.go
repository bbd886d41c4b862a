package source

import (
	"context"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func memLister(t *testing.T, files map[string]string) *DirLister {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return &DirLister{Fs: fs, Root: "/data"}
}

func TestDirLister_ListsJSONRecursively(t *testing.T) {
	l := memLister(t, map[string]string{
		"/data/b.json":         `{}`,
		"/data/a.json":         `{}`,
		"/data/nested/c.JSON":  `{}`,
		"/data/notes.txt":      `x`,
		"/data/nested/d.json~": `x`,
		"/other/e.json":        `{}`,
	})

	got, err := l.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"/data/a.json", "/data/b.json", "/data/nested/c.JSON"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDirLister_MissingRoot(t *testing.T) {
	l := &DirLister{Fs: afero.NewMemMapFs(), Root: "/nope"}
	if _, err := l.List(context.Background()); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestDirLister_RootIsFile(t *testing.T) {
	l := memLister(t, map[string]string{"/data": `{}`})
	if _, err := l.List(context.Background()); err == nil {
		t.Fatal("expected error when root is a file")
	}
}

func TestDirLister_CanceledContext(t *testing.T) {
	l := memLister(t, map[string]string{"/data/a.json": `{}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.List(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestDirLister_Read(t *testing.T) {
	l := memLister(t, map[string]string{"/data/a.json": `{"entry": []}`})
	data, err := l.Read("/data/a.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != `{"entry": []}` {
		t.Errorf("got %q", data)
	}
	if _, err := l.Read("/data/missing.json"); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestContentHash(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := ContentHash([]byte("abc")); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
