package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/thatguystone/cog/check"
)

var upper = Func(func(link string, opts Options) (Result, error) {
	return Rewritten(strings.ToUpper(link)), nil
})

type strictProvider struct{}

func (strictProvider) Rewrite(link string, opts Options) (Result, error) {
	return Rewritten(link + "?" + opts.(string)), nil
}

func (strictProvider) ValidateOptions(opts Options) error {
	if _, ok := opts.(string); !ok {
		return errors.New("want a string")
	}

	return nil
}

func init() {
	Register("test-upper", upper)
	Register("test-strict", strictProvider{})
}

func TestRegisterPanics(t *testing.T) {
	c := check.New(t)

	c.Panics(func() {
		Register("", upper)
	})

	c.Panics(func() {
		Register("test-nil", nil)
	})

	c.Panics(func() {
		Register("test-upper", upper)
	})
}

func TestLookup(t *testing.T) {
	c := check.New(t)

	p, err := Lookup("test-upper")
	c.Must.Nil(err)
	c.NotNil(p)

	_, err = Lookup("narp")
	c.Must.NotNil(err)

	uerr, ok := err.(UnknownError)
	c.True(ok)
	c.Equal(uerr.Name, "narp")
	c.Contains(err.Error(), "test-upper")
}

func TestNamesSorted(t *testing.T) {
	c := check.New(t)

	names := Names()
	joined := strings.Join(names, ",")
	c.Contains(joined, "test-strict")
	c.Contains(joined, "test-upper")

	for i := 1; i < len(names); i++ {
		c.True(names[i-1] < names[i], "%q should sort before %q",
			names[i-1], names[i])
	}
}

func TestDispatch(t *testing.T) {
	c := check.New(t)

	lower := Func(func(link string, opts Options) (Result, error) {
		return Rewritten(strings.ToLower(link)), nil
	})

	tests := []struct {
		name string
		ref  Ref
		out  string
	}{
		{
			name: "Named",
			ref:  Named("test-upper"),
			out:  "HTTPS://EXAMPLE.COM/A.JPG",
		},
		{
			name: "Direct",
			ref:  Use(lower),
			out:  "https://example.com/a.jpg",
		},
		{
			name: "DirectWinsOverName",
			ref: Ref{
				Name:     "test-upper",
				Provider: lower,
			},
			out: "https://example.com/a.jpg",
		},
	}

	for _, test := range tests {
		test := test

		c.Run(test.name, func(c *check.C) {
			res, err := Dispatch("https://example.com/A.jpg", test.ref, nil)
			c.Must.Nil(err)
			c.True(res.Changed())
			c.Equal(res.Link, test.out)
		})
	}
}

func TestDispatchUnknown(t *testing.T) {
	c := check.New(t)

	_, err := Dispatch("https://example.com/a.jpg", Named("narp"), nil)
	c.Must.NotNil(err)

	_, ok := err.(UnknownError)
	c.True(ok)
}

func TestDispatchPropagatesErrors(t *testing.T) {
	c := check.New(t)

	boom := errors.New("boom")
	p := Func(func(link string, opts Options) (Result, error) {
		return Result{}, boom
	})

	_, err := Dispatch("https://example.com/a.jpg", Use(p), nil)
	c.Equal(err, boom)
}

func TestUnchanged(t *testing.T) {
	c := check.New(t)

	res := Unchanged("nope", errors.New("bad link"))
	c.False(res.Changed())
	c.Equal(res.Link, "nope")
}

func TestValidate(t *testing.T) {
	c := check.New(t)

	c.Nil(Validate(Named("test-upper"), 123))
	c.Nil(Validate(Named("test-strict"), "w=1"))
	c.NotNil(Validate(Named("test-strict"), 123))
	c.NotNil(Validate(Named("narp"), nil))
}

func TestRefString(t *testing.T) {
	c := check.New(t)

	c.Equal(Named("test-upper").String(), "test-upper")
	c.Equal(Use(upper).String(), "<custom>")
}
