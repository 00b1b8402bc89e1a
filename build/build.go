// Package build rewrites the images in trees of HTML files
package build

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/thatguystone/imgcdn"
	"github.com/thatguystone/imgcdn/internal/min"
	"golang.org/x/sync/errgroup"
)

// A Builder rewrites HTML files with a Rewriter
type Builder struct {
	rw       *imgcdn.Rewriter
	base     *url.URL
	out      string
	exts     []string
	fragment bool
	minify   bool
	jobs     int
	logf     func(string, ...interface{})
}

// Stats describe what a build did
type Stats struct {
	Files   int // Files rewritten
	Images  int // Image elements changed
	Written int // Files written
}

func (st *Stats) add(o Stats) {
	st.Files += o.Files
	st.Images += o.Images
	st.Written += o.Written
}

type file struct {
	path string // Path to read
	rel  string // Path relative to the root, slash separated
}

// New creates a new Builder
func New(rw *imgcdn.Rewriter, opts ...Option) *Builder {
	b := &Builder{
		rw:   rw,
		exts: []string{".html", ".htm"},
		logf: log.Printf,
	}

	for _, opt := range opts {
		opt.applyTo(b)
	}

	if b.jobs <= 0 {
		b.jobs = runtime.NumCPU()
	}

	return b
}

// Build rewrites every given path. A directory is walked for files with a
// matching extension and is the root of everything under it; a file is
// relative to the directory it's in.
func (b *Builder) Build(ctx context.Context, paths ...string) (Stats, error) {
	var total Stats
	errs := FileErrors{}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			errs.record(path, errors.Wrap(err, "failed to stat"))
			continue
		}

		root := path
		if !info.IsDir() {
			root = filepath.Dir(path)
		}

		st, err := b.BuildIn(ctx, root, path)
		total.add(st)

		switch err := err.(type) {
		case nil:
		case FileErrors:
			for path, es := range err {
				errs[path] = append(errs[path], es...)
			}
		default:
			return total, err
		}
	}

	return total, errs.orNil()
}

// BuildIn rewrites paths, all of which must be under root. With no paths, all
// of root is rewritten.
func (b *Builder) BuildIn(ctx context.Context, root string, paths ...string) (Stats, error) {
	if len(paths) == 0 {
		paths = []string{root}
	}

	errs := FileErrors{}

	var files []file
	for _, path := range paths {
		fs, err := b.collect(root, path)
		if err != nil {
			errs.record(path, err)
			continue
		}

		files = append(files, fs...)
	}

	var (
		mtx sync.Mutex
		st  Stats
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)

	for _, f := range files {
		f := f

		g.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}

			fst, err := b.file(f)

			mtx.Lock()
			defer mtx.Unlock()

			if err != nil {
				errs.record(f.path, err)
				return nil
			}

			st.add(fst)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return st, err
	}

	return st, errs.orNil()
}

func (b *Builder) collect(root, path string) ([]file, error) {
	rel, err := relTo(root, path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat")
	}

	if !info.IsDir() {
		return []file{{path: path, rel: rel}}, nil
	}

	outAbs := ""
	if b.out != "" {
		outAbs, err = filepath.Abs(b.out)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve output dir")
		}
	}

	var files []file
	err = filepath.Walk(path,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if outAbs != "" {
					abs, err := filepath.Abs(path)
					if err == nil && abs == outAbs {
						return filepath.SkipDir
					}
				}

				return nil
			}

			if !b.hasExt(path) {
				return nil
			}

			rel, err := relTo(root, path)
			if err != nil {
				return err
			}

			files = append(files, file{path: path, rel: rel})
			return nil
		})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk")
	}

	return files, nil
}

func relTo(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", errors.Wrapf(err, "%q is not under %q", path, root)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%q is not under %q", path, root)
	}

	return filepath.ToSlash(rel), nil
}

func (b *Builder) hasExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range b.exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}

	return false
}

func (b *Builder) file(f file) (st Stats, err error) {
	in, err := os.ReadFile(f.path)
	if err != nil {
		err = errors.Wrap(err, "failed to read")
		return
	}

	rw := b.rw
	if b.base != nil {
		rw = rw.WithBase(b.base.ResolveReference(&url.URL{Path: f.rel}))
	}

	var buf bytes.Buffer
	var w io.Writer = &buf

	var mw io.WriteCloser
	if b.minify {
		mw = min.Writer(min.HTMLType, &buf)
		w = mw
	}

	render := rw.Document
	if b.fragment {
		render = rw.Fragment
	}

	st.Files = 1
	st.Images, err = render(w, bytes.NewReader(in))
	if err != nil {
		return
	}

	if mw != nil {
		err = mw.Close()
		if err != nil {
			err = errors.Wrap(err, "failed to minify")
			return
		}
	}

	dst := f.path
	if b.out != "" {
		dst = filepath.Join(b.out, filepath.FromSlash(f.rel))
	} else if st.Images == 0 && !b.minify {
		// Nothing changed
		return
	}

	err = writeFile(dst, buf.Bytes())
	if err != nil {
		return
	}

	st.Written = 1
	b.logf("I: build: %s: rewrote %d images", f.rel, st.Images)

	return
}

// writeFile replaces dst atomically
func writeFile(dst string, b []byte) error {
	dir := filepath.Dir(dst)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return errors.Wrap(err, "failed to create output dir")
	}

	tmp, err := os.CreateTemp(dir, ".imgcdn-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}

	defer os.Remove(tmp.Name())

	_, err = tmp.Write(b)
	if err == nil {
		err = tmp.Chmod(0644)
	}

	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return errors.Wrap(err, "failed to write")
	}

	err = os.Rename(tmp.Name(), dst)
	return errors.Wrap(err, "failed to write")
}
