package testutil

import (
	"os"
	"path/filepath"

	"github.com/thatguystone/cog/check"
)

// A TmpDir is a scratch site tree for tests
type TmpDir struct {
	c    *check.C
	root string
}

// NewTmpDir creates a new temp directory, populated with the given files
func NewTmpDir(c *check.C, files map[string]string) *TmpDir {
	root, err := os.MkdirTemp("", "imgcdn-test-")
	c.Must.Nil(err)

	tmp := &TmpDir{
		c:    c,
		root: root,
	}

	for path, content := range files {
		tmp.WriteFile(path, content)
	}

	return tmp
}

// Remove removes the temp dir and everything in it
func (tmp *TmpDir) Remove() {
	err := os.RemoveAll(tmp.root)
	tmp.c.Nil(err)
}

// Path gets the path to a file in the temp dir
func (tmp *TmpDir) Path(p string) string {
	return filepath.Join(tmp.root, filepath.Clean("/"+p))
}

// GetFiles gets every file under dir, keyed by its path relative to dir
func (tmp *TmpDir) GetFiles(dir string) map[string]string {
	m := make(map[string]string)
	root := tmp.Path(dir)

	err := filepath.Walk(root,
		func(path string, info os.FileInfo, err error) error {
			tmp.c.Must.Nil(err)

			if !info.IsDir() {
				rel, err := filepath.Rel(root, path)
				tmp.c.Must.Nil(err)

				m["/"+filepath.ToSlash(rel)] = tmp.ReadFile(filepath.Join(dir, rel))
			}

			return nil
		})
	tmp.c.Must.Nil(err)

	return m
}

// DumpTree dumps the FS tree of the temp dir to the test's logger
func (tmp *TmpDir) DumpTree() {
	tmp.c.Helper()
	tmp.c.Logf("Tree rooted at: %q", tmp.root)

	for rel := range tmp.GetFiles("/") {
		tmp.c.Logf("\t%s", rel)
	}
}

// ReadFile reads a file from the temp dir
func (tmp *TmpDir) ReadFile(path string) string {
	b, err := os.ReadFile(tmp.Path(path))
	tmp.c.Must.Nil(err)
	return string(b)
}

// WriteFile writes a file to the temp dir, creating parents as necessary
func (tmp *TmpDir) WriteFile(path string, b string) {
	path = tmp.Path(path)

	err := os.MkdirAll(filepath.Dir(path), 0750)
	tmp.c.Must.Nil(err)

	err = os.WriteFile(path, []byte(b), 0640)
	tmp.c.Must.Nil(err)
}
