package utils

import (
	"os"
	"path/filepath"
)

// DataDir resolves logical product directories against a physical root.
// Absolute paths, and paths starting with "." are used as given.
type DataDir struct {
	Root string
}

// NewDataDir uses root, or $CHUNKSTORE_DATA_DIR when root is empty.
func NewDataDir(root string) *DataDir {
	if root == "" {
		root = os.Getenv(EnvDataDir)
	}
	return &DataDir{Root: root}
}

func (d *DataDir) Resolve(dir string) string {
	if dir == "" {
		return filepath.Clean(d.Root)
	}
	if filepath.IsAbs(dir) || dir[0] == '.' || d.Root == "" {
		return filepath.Clean(dir)
	}
	return filepath.Join(d.Root, dir)
}

// Rel returns dir relative to the root, or dir itself when it is not
// under the root.
func (d *DataDir) Rel(dir string) string {
	if d.Root == "" {
		return dir
	}
	rel, err := filepath.Rel(d.Root, dir)
	if err != nil || (len(rel) >= 2 && rel[:2] == "..") {
		return dir
	}
	return rel
}
