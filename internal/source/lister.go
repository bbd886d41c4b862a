// Package source enumerates and opens bundle documents.
package source

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Lister yields the documents of one run. Each path can be read on its own.
type Lister interface {
	List(ctx context.Context) ([]string, error)
	Read(path string) ([]byte, error)
}

// DirLister walks Root on Fs and returns every *.json file below it.
type DirLister struct {
	Fs   afero.Fs
	Root string
}

// NewDirLister returns a lister over the OS filesystem.
func NewDirLister(root string) *DirLister {
	return &DirLister{Fs: afero.NewOsFs(), Root: root}
}

// List returns matching paths in lexical order. A missing or unreadable root
// is an error; so is any walk failure below it.
func (l *DirLister) List(ctx context.Context) ([]string, error) {
	info, err := l.Fs.Stat(l.Root)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", l.Root)
	}

	var paths []string
	err = afero.Walk(l.Fs, l.Root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if fi.IsDir() || !strings.HasSuffix(strings.ToLower(fi.Name()), ".json") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source root: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Read returns the content of one document.
func (l *DirLister) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(l.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// Compile-time check that DirLister satisfies the interface.
var _ Lister = (*DirLister)(nil)
