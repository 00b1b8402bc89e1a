package imgcdn

import (
	"net/url"

	"github.com/thatguystone/imgcdn/provider"
)

// An Option is passed to New() to change default options
type Option interface {
	applyTo(rw *Rewriter)
}

type option func(rw *Rewriter)

func (o option) applyTo(rw *Rewriter) { o(rw) }

// OriginValidation limits which images are rewritten by their origin
// (scheme://host[:port]). v may be:
//
//	nil                  every origin is allowed (the default)
//	string               the origin must match exactly
//	*regexp.Regexp       the origin must match the pattern
//	func(string) bool    the function decides
//	OriginValidator      the validator decides
//
// Anything else makes New fail with a ConfigError.
func OriginValidation(v interface{}) Option {
	return option(func(rw *Rewriter) {
		val, err := newOriginValidator(v)
		if err != nil {
			rw.setErr(ConfigError{
				Option: "origin validation",
				Err:    err,
			})
			return
		}

		rw.validate = val
	})
}

// Src rewrites src using the given provider options
func Src(opts provider.Options) Option {
	return option(func(rw *Rewriter) {
		rw.src = opts
		rw.hasSrc = true
	})
}

// SrcSet replaces srcset with one candidate per entry, in order
func SrcSet(entries ...SrcSetEntry) Option {
	return option(func(rw *Rewriter) {
		rw.srcSet = entries
		rw.hasSrcSet = true
	})
}

// Sizes replaces sizes with the given sizes, joined with ", "
func Sizes(sizes ...string) Option {
	return option(func(rw *Rewriter) {
		rw.sizes = sizes
		rw.hasSizes = true
	})
}

// Style appends to the existing style, or sets it if there is none
func Style(style string) Option {
	return option(func(rw *Rewriter) {
		rw.style = style
	})
}

// Base sets the URL that relative links are resolved against
func Base(u *url.URL) Option {
	return option(func(rw *Rewriter) {
		rw.base = u
	})
}

// LogTo sets the log function
func LogTo(cb func(string, ...interface{})) Option {
	return option(func(rw *Rewriter) {
		rw.logf = cb
	})
}

func (rw *Rewriter) setErr(err error) {
	if rw.err == nil {
		rw.err = err
	}
}
