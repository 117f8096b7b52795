package sip

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"sipstructure/internal/catalogue"
)

// SourceFile is one regular file found under the source root.
type SourceFile struct {
	// RelativePath uses forward slashes and is the ledger key.
	RelativePath string
	Name         string
	Ext          string
	Size         int64
	path         string
}

// Path returns the absolute path of the file.
func (f SourceFile) Path() string { return f.path }

// Scan lists every regular file under root, recursively, sorted by relative
// path. Symlinks and other special files are ignored.
func Scan(ctx context.Context, root string) ([]SourceFile, error) {
	var files []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, SourceFile{
			RelativePath: filepath.ToSlash(rel),
			Name:         d.Name(),
			Ext:          catalogue.Ext(d.Name()),
			Size:         info.Size(),
			path:         path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	return files, nil
}

func totalSize(files []SourceFile) uint64 {
	var total uint64
	for _, f := range files {
		total += uint64(f.Size)
	}
	return total
}

func relativePaths(files []SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelativePath
	}
	return out
}
