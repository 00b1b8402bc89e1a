package config

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"github.com/thatguystone/imgcdn"
	"github.com/thatguystone/imgcdn/provider"
	"github.com/thatguystone/imgcdn/provider/cdncgi"
	"gopkg.in/yaml.v2"
)

// C stands for "config".
type C struct {
	// Name of the registered provider
	Provider string

	// Origin that serves optimized images; empty for the image's own
	ResultOrigin string `yaml:"resultOrigin"`

	// Don't add f=auto to options without a format
	KeepFormat bool `yaml:"keepFormat"`

	// URL of the site root. Relative links in each file are resolved against
	// the file's URL under this.
	Base string

	// Only rewrite images from matching origins
	OriginValidation Origin `yaml:"originValidation"`

	// What to rewrite; nil leaves the attribute alone
	Src    *StringList
	SrcSet []SrcSetEntry `yaml:"srcset"`
	Sizes  *StringList
	Style  string

	// Where to write rewritten files; empty to rewrite in place
	Output string

	// Extensions of files to rewrite
	Exts []string

	// Treat files as <body> fragments rather than full documents
	Fragment bool

	// Minify output
	Minify bool

	// Number of files to rewrite at the same time; <= 0 for one per CPU
	Jobs int
}

// Origin configures origin validation. At most one may be set.
type Origin struct {
	Exact   string
	Pattern string
}

// A SrcSetEntry is a single srcset candidate
type SrcSetEntry struct {
	Options    StringList
	Descriptor string
}

// StringList is a list of strings that may be written in YAML as either a
// scalar or a sequence
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (sl *StringList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	err := unmarshal(&s)
	if err == nil {
		*sl = StringList{}
		if s != "" {
			*sl = StringList{s}
		}

		return nil
	}

	var l []string
	err = unmarshal(&l)
	if err != nil {
		return errors.New("expected a string or a list of strings")
	}

	*sl = StringList(l)
	return nil
}

// New creates a config with the defaults
func New() *C {
	return &C{
		Provider: cdncgi.Name,
		Exts:     []string{".html", ".htm"},
	}
}

// Load extra configs on top of this config. Later files override earlier ones.
func (c *C) Load(files ...string) error {
	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			return errors.Wrap(err, "failed to read config file")
		}

		err = yaml.UnmarshalStrict(b, c)
		if err != nil {
			return errors.Wrapf(err, "failed to unmarshal config file %s", file)
		}
	}

	return nil
}

// InDir prefixes each non-absolute path in C with the given dir.
func (c C) InDir(dir string) *C {
	if c.Output != "" && !filepath.IsAbs(c.Output) {
		c.Output = filepath.Join(dir, c.Output)
	}

	return &c
}

// BaseURL parses Base. It's nil if Base is empty.
func (c *C) BaseURL() (*url.URL, error) {
	if c.Base == "" {
		return nil, nil
	}

	u, err := url.Parse(c.Base)
	if err != nil {
		return nil, imgcdn.ConfigError{
			Option: "base",
			Err:    err,
		}
	}

	if provider.Origin(u) == "" {
		return nil, imgcdn.ConfigError{
			Option: "base",
			Err:    errors.Errorf("%q is not absolute", c.Base),
		}
	}

	return u, nil
}

// Options creates the Rewriter options described by this config
func (c *C) Options() ([]imgcdn.Option, error) {
	if c.Provider != cdncgi.Name {
		return nil, imgcdn.ConfigError{
			Option: "provider",
			Err: errors.Errorf(
				"%q can't be configured from a file; only %q can",
				c.Provider, cdncgi.Name),
		}
	}

	origin, err := c.OriginValidation.validator()
	if err != nil {
		return nil, err
	}

	base, err := c.BaseURL()
	if err != nil {
		return nil, err
	}

	opts := []imgcdn.Option{
		imgcdn.OriginValidation(origin),
		imgcdn.Base(base),
		imgcdn.Style(c.Style),
	}

	if c.Src != nil {
		opts = append(opts, imgcdn.Src(c.providerOptions(*c.Src)))
	}

	if c.SrcSet != nil {
		ents := make([]imgcdn.SrcSetEntry, len(c.SrcSet))
		for i, ent := range c.SrcSet {
			ents[i] = imgcdn.SrcSetEntry{
				Options:    c.providerOptions(ent.Options),
				Descriptor: ent.Descriptor,
			}
		}

		opts = append(opts, imgcdn.SrcSet(ents...))
	}

	if c.Sizes != nil {
		opts = append(opts, imgcdn.Sizes(*c.Sizes...))
	}

	return opts, nil
}

// Rewriter creates the Rewriter described by this config
func (c *C) Rewriter(extra ...imgcdn.Option) (*imgcdn.Rewriter, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}

	return imgcdn.New(provider.Named(c.Provider), append(opts, extra...)...)
}

func (c *C) providerOptions(sl StringList) cdncgi.Options {
	return cdncgi.Options{
		Options:      cdncgi.OptionList(sl),
		ResultOrigin: c.ResultOrigin,
		KeepFormat:   c.KeepFormat,
	}
}

func (o Origin) validator() (interface{}, error) {
	switch {
	case o.Exact != "" && o.Pattern != "":
		return nil, imgcdn.ConfigError{
			Option: "origin validation",
			Err:    errors.New("only one of exact and pattern may be set"),
		}

	case o.Exact != "":
		return o.Exact, nil

	case o.Pattern != "":
		re, err := regexp.Compile(o.Pattern)
		if err != nil {
			return nil, imgcdn.ConfigError{
				Option: "origin validation",
				Err:    err,
			}
		}

		return re, nil

	default:
		return nil, nil
	}
}
