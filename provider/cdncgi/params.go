package cdncgi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goji/param"
	"github.com/pkg/errors"
	"github.com/thatguystone/imgcdn/provider"
)

// Params are the decoded transform options. Options that accept either a
// number or a keyword (eg. "width=auto", "quality=high") are kept as strings.
// Keys that aren't modelled here are passed through untouched, so newer CDN
// options keep working.
//
// See https://developers.cloudflare.com/images/transform-images/transform-via-url/
type Params struct {
	Anim                  string    `param:"anim"`
	Background            string    `param:"background"`
	Blur                  *int      `param:"blur"`
	Border                string    `param:"border"`
	Brightness            *float64  `param:"brightness"`
	Compression           string    `param:"compression"`
	Contrast              *float64  `param:"contrast"`
	DPR                   *float64  `param:"dpr"`
	Fit                   string    `param:"fit"`
	Flip                  string    `param:"flip"`
	Format                string    `param:"format"`
	Gamma                 *float64  `param:"gamma"`
	Gravity               string    `param:"gravity"`
	Height                *int      `param:"height"`
	Metadata              string    `param:"metadata"`
	OnError               string    `param:"onerror"`
	Quality               string    `param:"quality"`
	Rotate                *int      `param:"rotate"`
	Saturation            *float64  `param:"saturation"`
	Segment               string    `param:"segment"`
	Sharpen               *float64  `param:"sharpen"`
	SlowConnectionQuality string    `param:"slow-connection-quality"`
	Trim                  string    `param:"trim"`
	TrimSides             TrimSides `param:"trimside"`
	Width                 string    `param:"width"`
	Zoom                  *float64  `param:"zoom"`

	// Fragments with keys that aren't modelled, in order
	Unknown []string `param:"-"`
}

// TrimSides are the per-side forms of trim, eg. "trim.left=10"
type TrimSides struct {
	Left   *int `param:"left"`
	Top    *int `param:"top"`
	Right  *int `param:"right"`
	Bottom *int `param:"bottom"`
	Width  *int `param:"width"`
	Height *int `param:"height"`
}

var (
	aliases = map[string]string{
		"f": "format",
		"g": "gravity",
		"h": "height",
		"q": "quality",
		"w": "width",
	}

	knownKeys = map[string]struct{}{}

	trimSides = map[string]struct{}{
		"left":   {},
		"top":    {},
		"right":  {},
		"bottom": {},
		"width":  {},
		"height": {},
	}

	enums = map[string][]string{
		"fit":      {"scale-down", "contain", "cover", "crop", "pad", "squeeze"},
		"format":   {"auto", "avif", "webp", "jpeg", "baseline-jpeg", "json"},
		"metadata": {"keep", "copyright", "none"},
		"flip":     {"h", "v", "hv"},
	}
)

func init() {
	for _, key := range []string{
		"anim", "background", "blur", "border", "brightness", "compression",
		"contrast", "dpr", "fit", "flip", "format", "gamma", "gravity",
		"height", "metadata", "onerror", "quality", "rotate", "saturation",
		"segment", "sharpen", "slow-connection-quality", "trim", "width",
		"zoom",
	} {
		knownKeys[key] = struct{}{}
	}
}

// ParseParams decodes an option string (eg. "f=auto,w=320,q=80"). Fragments
// are decoded in order, so a later duplicate overrides an earlier one. Space
// around fragments and empty fragments are ignored. Unknown keys are kept in
// Params.Unknown; only modelled keys are type checked.
func ParseParams(optStr string) (p Params, err error) {
	for _, frag := range strings.Split(optStr, ",") {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}

		eq := strings.IndexByte(frag, '=')
		if eq <= 0 {
			err = errors.Errorf("cdncgi: option %q is not key=value", frag)
			return
		}

		key, val := strings.TrimSpace(frag[:eq]), strings.TrimSpace(frag[eq+1:])
		if full, ok := aliases[key]; ok {
			key = full
		}

		pkey, ok := paramKey(key)
		if !ok {
			p.Unknown = append(p.Unknown, frag)
			continue
		}

		err = checkEnum(key, val)
		if err != nil {
			return
		}

		err = param.Parse(url.Values{pkey: {val}}, &p)
		if err != nil {
			err = errors.Wrapf(err, "cdncgi: invalid option %q", frag)
			return
		}
	}

	if p.Width != "" && p.Width != "auto" {
		_, err = strconv.Atoi(p.Width)
		if err != nil {
			err = errors.Errorf("cdncgi: width must be a number or auto, not %q",
				p.Width)
		}
	}

	return
}

// paramKey maps an option key to the key Params decodes it from
func paramKey(key string) (string, bool) {
	if side := strings.TrimPrefix(key, "trim."); side != key {
		if _, ok := trimSides[side]; ok {
			return "trimside[" + side + "]", true
		}

		return "", false
	}

	if strings.ContainsAny(key, "[]") {
		return "", false
	}

	_, ok := knownKeys[key]
	return key, ok
}

func checkEnum(key, val string) error {
	allowed, ok := enums[key]
	if !ok {
		return nil
	}

	for _, a := range allowed {
		if a == val {
			return nil
		}
	}

	return errors.Errorf("cdncgi: %s must be one of [%s], not %q",
		key, strings.Join(allowed, ", "), val)
}

// ValidateOptions implements provider.Validator
func (Provider) ValidateOptions(opts provider.Options) error {
	o, err := toOptions(opts)
	if err != nil {
		return err
	}

	_, err = ParseParams(o.OptionString())
	if err != nil {
		return err
	}

	if o.ResultOrigin != "" {
		u, err := url.Parse(o.ResultOrigin)
		if err != nil {
			return errors.Wrap(err, "cdncgi: invalid result origin")
		}

		if provider.Origin(u) == "" || strings.Trim(u.Path, "/") != "" {
			return errors.Errorf(
				"cdncgi: result origin %q must be scheme://host only",
				o.ResultOrigin)
		}
	}

	return nil
}
