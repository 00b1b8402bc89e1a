package imgcdn

import (
	"regexp"

	"github.com/pkg/errors"
)

// An OriginValidator decides if images from an origin should be rewritten
type OriginValidator interface {
	ValidOrigin(origin string) bool
}

// OriginFunc adapts a function to an OriginValidator
type OriginFunc func(origin string) bool

// ValidOrigin implements OriginValidator
func (f OriginFunc) ValidOrigin(origin string) bool {
	return f(origin)
}

type exactOrigin string

func (o exactOrigin) ValidOrigin(origin string) bool {
	return string(o) == origin
}

type patternOrigin struct {
	re *regexp.Regexp
}

func (o patternOrigin) ValidOrigin(origin string) bool {
	return o.re.MatchString(origin)
}

func newOriginValidator(v interface{}) (OriginValidator, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil

	case string:
		return exactOrigin(v), nil

	case *regexp.Regexp:
		if v == nil {
			return nil, errors.New("nil *regexp.Regexp")
		}

		return patternOrigin{re: v}, nil

	case func(string) bool:
		if v == nil {
			return nil, errors.New("nil func")
		}

		return OriginFunc(v), nil

	case OriginValidator:
		return v, nil

	default:
		return nil, errors.Errorf("unsupported type %T", v)
	}
}
