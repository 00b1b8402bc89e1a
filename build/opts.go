package build

import (
	"net/url"
	"strings"
)

// An Option is passed to New() to change default options
type Option interface {
	applyTo(b *Builder)
}

type option func(b *Builder)

func (o option) applyTo(b *Builder) { o(b) }

// Base sets the URL of the site root. Each file gets the URL of its path
// under this as its base.
func Base(u *url.URL) Option {
	return option(func(b *Builder) {
		if u == nil {
			b.base = nil
			return
		}

		cp := *u
		if !strings.HasSuffix(cp.Path, "/") {
			cp.Path += "/"
			cp.RawPath = ""
		}

		b.base = &cp
	})
}

// Output sets the directory that rewritten files are written to, mirroring
// the input tree. If empty, files are rewritten in place.
func Output(dir string) Option {
	return option(func(b *Builder) {
		b.out = dir
	})
}

// Exts sets the extensions of files that are rewritten when walking
// directories
func Exts(exts ...string) Option {
	return option(func(b *Builder) {
		b.exts = exts
	})
}

// Fragment treats every file as a <body> fragment
func Fragment(fragment bool) Option {
	return option(func(b *Builder) {
		b.fragment = fragment
	})
}

// Minify minifies every file written
func Minify(minify bool) Option {
	return option(func(b *Builder) {
		b.minify = minify
	})
}

// Jobs limits how many files are rewritten at once. <= 0 is one per CPU.
func Jobs(n int) Option {
	return option(func(b *Builder) {
		b.jobs = n
	})
}

// LogTo sets the log function
func LogTo(cb func(string, ...interface{})) Option {
	return option(func(b *Builder) {
		b.logf = cb
	})
}
