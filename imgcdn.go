// Package imgcdn rewrites <img> attributes so that images are served through
// an image-optimizing CDN.
//
// A Rewriter decides, for a single element, which of src, srcset, sizes, and
// style to replace. Links are rewritten by a provider (see package provider);
// the built-in one lives in provider/cdncgi.
//
// Bad data never fails a document: images with links that can't be parsed are
// reported and left alone. Configuration mistakes fail in New; errors from
// providers are returned as-is.
package imgcdn

import (
	"log"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/thatguystone/imgcdn/provider"
)

// An Element is the view of a single element in a document tree
type Element interface {
	Tag() string
	Attr(key string) (string, bool)
}

// A Rewriter rewrites image elements. It is immutable and safe for concurrent
// use.
type Rewriter struct {
	ref      provider.Ref
	validate OriginValidator
	base     *url.URL
	logf     func(string, ...interface{})

	src       provider.Options
	hasSrc    bool
	srcSet    []SrcSetEntry
	hasSrcSet bool
	sizes     []string
	hasSizes  bool
	style     string

	err error // First error from applying options
}

// SrcSetEntry is a single candidate in a generated srcset
type SrcSetEntry struct {
	Options    provider.Options // Passed to the provider
	Descriptor string           // Width or density, eg. "320w" or "2x"
}

// New creates a new Rewriter that uses the given provider. With no options,
// only origins are checked and nothing is rewritten.
func New(p provider.Ref, opts ...Option) (*Rewriter, error) {
	rw := &Rewriter{
		logf: log.Printf,
	}

	for _, opt := range opts {
		opt.applyTo(rw)
	}

	if rw.err != nil {
		return nil, rw.err
	}

	resolved, err := p.Resolve()
	if err != nil {
		return nil, ConfigError{
			Option: "provider",
			Err:    err,
		}
	}

	rw.ref = provider.Ref{
		Name:     p.Name,
		Provider: resolved,
	}

	err = rw.validateOptions()
	if err != nil {
		return nil, err
	}

	return rw, nil
}

func (rw *Rewriter) validateOptions() error {
	if rw.hasSrc {
		err := provider.Validate(rw.ref, rw.src)
		if err != nil {
			return ConfigError{
				Option: "src",
				Err:    err,
			}
		}
	}

	for i, ent := range rw.srcSet {
		err := provider.Validate(rw.ref, ent.Options)
		if err != nil {
			return ConfigError{
				Option: "srcset",
				Err:    errors.Wrapf(err, "entry %d (%s)", i, ent.Descriptor),
			}
		}
	}

	return nil
}

// WithBase creates a copy of this Rewriter that resolves relative links
// against the given base
func (rw *Rewriter) WithBase(base *url.URL) *Rewriter {
	cp := *rw
	cp.base = base
	return &cp
}

// Rewrite computes the new attributes for a single element. Elements that
// aren't images, that have no src, whose src can't be parsed, or whose origin
// isn't allowed get no Mutations.
func (rw *Rewriter) Rewrite(el Element) (Mutations, error) {
	if !strings.EqualFold(el.Tag(), "img") {
		return nil, nil
	}

	src, ok := el.Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return nil, nil
	}

	link, origin, err := rw.resolve(src)
	if err != nil {
		rw.logf("W: imgcdn: skipping image %q: %v", src, err)
		return nil, nil
	}

	if rw.validate != nil && !rw.validate.ValidOrigin(origin) {
		return nil, nil
	}

	var muts Mutations

	if rw.hasSrc {
		res, err := provider.Dispatch(link, rw.ref, rw.src)
		if err != nil {
			return nil, err
		}

		if rw.changed(src, "src", res) {
			muts = append(muts, Attr{Key: "src", Val: res.Link})
		}
	}

	if rw.hasSrcSet {
		val, ok, err := rw.buildSrcSet(src, link)
		if err != nil {
			return nil, err
		}

		if ok {
			muts = append(muts, Attr{Key: "srcset", Val: val})
		}
	}

	if rw.hasSizes {
		muts = append(muts, Attr{
			Key: "sizes",
			Val: strings.Join(rw.sizes, ", "),
		})
	}

	if rw.style != "" {
		style, ok := el.Attr("style")
		if !ok || style == "" {
			style = rw.style
		} else {
			style += " " + rw.style
		}

		muts = append(muts, Attr{Key: "style", Val: style})
	}

	return muts, nil
}

// resolve gets the link to give to the provider and the origin it belongs to
func (rw *Rewriter) resolve(src string) (link, origin string, err error) {
	u, err := url.Parse(src)
	if err != nil {
		return
	}

	origin = provider.Origin(u)
	if origin != "" {
		link = src
		return
	}

	if u.Scheme != "" || u.Opaque != "" {
		err = errors.Errorf("%q has no origin", src)
		return
	}

	if rw.base == nil {
		err = errors.Errorf("%q is relative, and there is no base URL", src)
		return
	}

	abs := rw.base.ResolveReference(u)

	origin = provider.Origin(abs)
	if origin == "" {
		err = errors.Errorf("base URL %q is not absolute", rw.base)
		return
	}

	// Protocol-relative links can point anywhere
	if u.Host != "" {
		link = abs.String()
		return
	}

	rel := url.URL{
		Path:     abs.Path,
		RawPath:  abs.RawPath,
		RawQuery: abs.RawQuery,
	}

	link = rel.String()
	return
}

func (rw *Rewriter) buildSrcSet(src, link string) (string, bool, error) {
	ss := make(srcSet, 0, len(rw.srcSet))

	for _, ent := range rw.srcSet {
		res, err := provider.Dispatch(link, rw.ref, ent.Options)
		if err != nil {
			return "", false, err
		}

		if !rw.changed(src, "srcset", res) {
			return "", false, nil
		}

		is := imgSrc{url: res.Link}
		if ent.Descriptor != "" {
			is.descriptors = []string{ent.Descriptor}
		}

		ss = append(ss, is)
	}

	return ss.String(), true, nil
}

func (rw *Rewriter) changed(src, attr string, res provider.Result) bool {
	if res.Changed() {
		return true
	}

	rw.logf("W: imgcdn: leaving %s of %q alone: %v", attr, src, res.Reason)
	return false
}
