package cdncgi

import (
	"testing"

	"github.com/thatguystone/cog/check"
	"github.com/thatguystone/imgcdn/provider"
)

func TestParseParams(t *testing.T) {
	c := check.New(t)

	p, err := ParseParams("f=auto,w=320,h=200,q=80,dpr=2,fit=cover,g=0.5x0.5")
	c.Must.Nil(err)
	c.Equal(p.Format, "auto")
	c.Equal(p.Width, "320")
	c.Must.NotNil(p.Height)
	c.Equal(*p.Height, 200)
	c.Equal(p.Quality, "80")
	c.Must.NotNil(p.DPR)
	c.Equal(*p.DPR, 2.0)
	c.Equal(p.Fit, "cover")
	c.Equal(p.Gravity, "0.5x0.5")
}

func TestParseParamsLaterWins(t *testing.T) {
	c := check.New(t)

	p, err := ParseParams("w=320,width=640")
	c.Must.Nil(err)
	c.Equal(p.Width, "640")
}

func TestParseParamsSpacing(t *testing.T) {
	c := check.New(t)

	p, err := ParseParams(" f=auto, w = 320 ,,q=80,")
	c.Must.Nil(err)
	c.Equal(p.Format, "auto")
	c.Equal(p.Width, "320")
	c.Equal(p.Quality, "80")

	_, err = ParseParams("")
	c.Nil(err)
}

func TestParseParamsTrimSides(t *testing.T) {
	c := check.New(t)

	p, err := ParseParams("trim.left=10,trim.height=200,trim=1;2;3;4")
	c.Must.Nil(err)
	c.Must.NotNil(p.TrimSides.Left)
	c.Equal(*p.TrimSides.Left, 10)
	c.Must.NotNil(p.TrimSides.Height)
	c.Equal(*p.TrimSides.Height, 200)
	c.Nil(p.TrimSides.Top)
	c.Equal(p.Trim, "1;2;3;4")
}

func TestParseParamsUnknown(t *testing.T) {
	c := check.New(t)

	p, err := ParseParams("f=auto,narp=1,trim.middle=5,trimside[left]=1,w=320")
	c.Must.Nil(err)
	c.Equal(p.Format, "auto")
	c.Equal(p.Width, "320")
	c.Equal(p.Unknown, []string{"narp=1", "trim.middle=5", "trimside[left]=1"})
	c.Nil(p.TrimSides.Left)
}

func TestParseParamsErrors(t *testing.T) {
	c := check.New(t)

	tests := []struct {
		name string
		in   string
		err  string
	}{
		{
			name: "NoKey",
			in:   "=auto",
			err:  "not key=value",
		},
		{
			name: "NoValue",
			in:   "f=auto, w",
			err:  "not key=value",
		},
		{
			name: "BadEnum",
			in:   "fit=stretch",
			err:  "fit must be one of",
		},
		{
			name: "BadInt",
			in:   "h=tall",
			err:  "invalid option",
		},
		{
			name: "BadWidth",
			in:   "w=wide",
			err:  "width must be",
		},
		{
			name: "BadTrimSide",
			in:   "trim.left=far",
			err:  "invalid option",
		},
	}

	for _, test := range tests {
		test := test

		c.Run(test.name, func(c *check.C) {
			_, err := ParseParams(test.in)
			c.Must.NotNil(err)
			c.Contains(err.Error(), test.err)
		})
	}
}

func TestValidateOptions(t *testing.T) {
	c := check.New(t)

	ref := provider.Named(Name)

	c.Nil(provider.Validate(ref, nil))
	c.Nil(provider.Validate(ref, Options{}))
	c.Nil(provider.Validate(ref, &Options{
		Options:      OptionList{"f=auto", "w=auto"},
		ResultOrigin: "https://cdn.example.net/",
	}))
	c.Nil(provider.Validate(ref, Options{
		Options: OptionList{"trim.left=10"},
	}))
	c.Nil(provider.Validate(ref, Options{
		Options: OptionList{"f=auto, w=320"},
	}))
	c.Nil(provider.Validate(ref, Options{
		Options: OptionList{"some-new-option=1"},
	}))

	c.NotNil(provider.Validate(ref, "f=auto"))
	c.NotNil(provider.Validate(ref, Options{
		Options: OptionList{"nope"},
	}))
	c.NotNil(provider.Validate(ref, Options{
		Options: OptionList{"fit=stretch"},
	}))
	c.NotNil(provider.Validate(ref, Options{
		ResultOrigin: "cdn.example.net",
	}))
	c.NotNil(provider.Validate(ref, Options{
		ResultOrigin: "https://cdn.example.net/images",
	}))
}
