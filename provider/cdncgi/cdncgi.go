// Package cdncgi implements the reference provider: Cloudflare-style image
// resizing through a "/cdn-cgi/image/" path prefix.
//
// Links on the same origin as the result get the option segment injected
// ahead of their path:
//
//	https://example.com/image.jpg
//	https://example.com/cdn-cgi/image/f=auto/image.jpg
//
// Links from any other origin are proxied through the result origin:
//
//	https://cdn.example.net/cdn-cgi/image/f=auto/https://example.com/image.jpg
package cdncgi

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/thatguystone/imgcdn/provider"
)

const (
	// Name is the name the provider is registered under
	Name = "cloudflare"

	// PathPrefix comes before the option segment in every rewritten link
	PathPrefix = "/cdn-cgi/image/"

	// DefaultFormat is put ahead of any options that don't choose a format
	DefaultFormat = "f=auto"
)

// OptionList is a list of option fragments that are joined with "," in
// order. Surrounding space is trimmed and empty fragments are dropped. The
// following are all equivalent:
//
//	OptionList{"f=auto,w=320,q=80"}
//	OptionList{"f=auto", "w=320", "q=80"}
//	OptionList{"f=auto, w=320", "", "q=80"}
type OptionList []string

func (ol OptionList) String() string {
	return strings.Join(ol.fragments(), ",")
}

func (ol OptionList) fragments() []string {
	var frags []string

	for _, opt := range ol {
		for _, frag := range strings.Split(opt, ",") {
			frag = strings.TrimSpace(frag)
			if frag != "" {
				frags = append(frags, frag)
			}
		}
	}

	return frags
}

func (ol OptionList) hasFormat() bool {
	for _, frag := range ol.fragments() {
		if strings.HasPrefix(frag, "f=") || strings.HasPrefix(frag, "format=") {
			return true
		}
	}

	return false
}

// Options configure a single rewrite
type Options struct {
	// Options for the image transform
	Options OptionList

	// Origin that serves the transformed images. If empty or the same as the
	// image's origin, the option segment is injected into the image's own
	// URL; otherwise, the full original link is proxied through this origin.
	ResultOrigin string

	// Don't add DefaultFormat when Options don't choose a format
	KeepFormat bool
}

// OptionString builds the option segment of rewritten links. The segment is
// never empty: with nothing else to say, it's DefaultFormat.
func (o Options) OptionString() string {
	opts := o.Options.String()

	switch {
	case opts == "":
		return DefaultFormat

	case o.KeepFormat || o.Options.hasFormat():
		return opts

	default:
		return DefaultFormat + "," + opts
	}
}

// Provider implements provider.Provider
type Provider struct{}

func init() {
	provider.Register(Name, Provider{})
}

// Rewrite implements provider.Provider. opts must be an Options, *Options, or
// nil (for the defaults).
func (Provider) Rewrite(link string, opts provider.Options) (provider.Result, error) {
	o, err := toOptions(opts)
	if err != nil {
		return provider.Result{}, err
	}

	return Rewrite(link, o), nil
}

// Rewrite rewrites a single link. Links that can't be rewritten are returned
// unchanged, with a reason.
func Rewrite(link string, opts Options) provider.Result {
	u, err := url.Parse(link)
	if err != nil {
		return provider.Unchanged(link, err)
	}

	optStr := opts.OptionString()

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	origin := provider.Origin(u)
	if origin == "" {
		if !isRootedPath(u) {
			return provider.Unchanged(link,
				errors.Errorf("cdncgi: %q is neither absolute nor rooted", link))
		}

		// Served by whoever serves the page
		return provider.Rewritten(PathPrefix + optStr + path)
	}

	resOrigin := normOrigin(opts.ResultOrigin)
	if resOrigin == "" || resOrigin == origin {
		return provider.Rewritten(origin + PathPrefix + optStr + path)
	}

	return provider.Rewritten(
		strings.TrimRight(opts.ResultOrigin, "/") + PathPrefix + optStr + "/" + link)
}

func isRootedPath(u *url.URL) bool {
	return u.Scheme == "" &&
		u.Host == "" &&
		u.Opaque == "" &&
		strings.HasPrefix(u.Path, "/")
}

// normOrigin normalizes a configured result origin so that it compares equal
// to link origins. If it doesn't parse, it's compared as-is.
func normOrigin(origin string) string {
	if origin == "" {
		return ""
	}

	u, err := url.Parse(origin)
	if err != nil {
		return origin
	}

	norm := provider.Origin(u)
	if norm == "" {
		return origin
	}

	return norm
}

func toOptions(opts provider.Options) (Options, error) {
	switch o := opts.(type) {
	case nil:
		return Options{}, nil

	case Options:
		return o, nil

	case *Options:
		if o == nil {
			return Options{}, nil
		}

		return *o, nil

	default:
		return Options{}, errors.Errorf(
			"cdncgi: options must be cdncgi.Options, not %T", opts)
	}
}
