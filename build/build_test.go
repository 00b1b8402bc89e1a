package build

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thatguystone/cog/cfs"
	"github.com/thatguystone/cog/check"
	"github.com/thatguystone/imgcdn"
	"github.com/thatguystone/imgcdn/internal/testutil"
	"github.com/thatguystone/imgcdn/provider"
	"github.com/thatguystone/imgcdn/provider/cdncgi"
)

var site = map[string]string{
	"/site/index.html":     `<img src="/a.jpg">`,
	"/site/blog/post.html": `<p>hi</p><img src="img/b.jpg">`,
	"/site/blog/none.htm":  `<p>no images</p>`,
	"/site/style.css":      `img { width: 100%; }`,
}

func newRewriter(c *check.C, p provider.Ref) *imgcdn.Rewriter {
	rw, err := imgcdn.New(p,
		imgcdn.Src(nil),
		imgcdn.LogTo(c.Logf))
	c.Must.Nil(err)

	return rw
}

func newBuilder(c *check.C, opts ...Option) *Builder {
	u, err := url.Parse("https://example.com/")
	c.Must.Nil(err)

	opts = append([]Option{
		Base(u),
		Fragment(true),
		LogTo(c.Logf),
	}, opts...)

	return New(newRewriter(c, provider.Named(cdncgi.Name)), opts...)
}

func TestBuildOutput(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, site)
	defer tmp.Remove()

	b := newBuilder(c, Output(tmp.Path("/public")))

	st, err := b.Build(context.Background(), tmp.Path("/site"))
	c.Must.Nil(err)
	c.Equal(st, Stats{Files: 3, Images: 2, Written: 3})

	c.Equal(tmp.GetFiles("/public"), map[string]string{
		"/index.html":     `<img src="/cdn-cgi/image/f=auto/a.jpg"/>`,
		"/blog/post.html": `<p>hi</p><img src="/cdn-cgi/image/f=auto/blog/img/b.jpg"/>`,
		"/blog/none.htm":  `<p>no images</p>`,
	})

	// Sources are left alone
	c.Equal(tmp.ReadFile("/site/index.html"), site["/site/index.html"])
}

func TestBuildInPlace(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, site)
	defer tmp.Remove()

	b := newBuilder(c)

	st, err := b.Build(context.Background(), tmp.Path("/site"))
	c.Must.Nil(err)
	c.Equal(st, Stats{Files: 3, Images: 2, Written: 2})

	c.Equal(tmp.ReadFile("/site/index.html"),
		`<img src="/cdn-cgi/image/f=auto/a.jpg"/>`)
	c.Equal(tmp.ReadFile("/site/blog/none.htm"), site["/site/blog/none.htm"])

	files := tmp.GetFiles("/site")
	c.Equal(len(files), 4)
}

func TestBuildSingleFile(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, site)
	defer tmp.Remove()

	b := newBuilder(c, Output(tmp.Path("/public")))

	st, err := b.Build(context.Background(), tmp.Path("/site/blog/post.html"))
	c.Must.Nil(err)
	c.Equal(st.Files, 1)

	// Relative to its own directory
	c.Equal(tmp.ReadFile("/public/post.html"),
		`<p>hi</p><img src="/cdn-cgi/image/f=auto/img/b.jpg"/>`)
}

func TestBuildIn(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, site)
	defer tmp.Remove()

	b := newBuilder(c, Output(tmp.Path("/public")))

	st, err := b.BuildIn(context.Background(),
		tmp.Path("/site"),
		tmp.Path("/site/blog/post.html"))
	c.Must.Nil(err)
	c.Equal(st.Files, 1)

	c.Equal(tmp.ReadFile("/public/blog/post.html"),
		`<p>hi</p><img src="/cdn-cgi/image/f=auto/blog/img/b.jpg"/>`)

	exists, err := cfs.FileExists(tmp.Path("/public/index.html"))
	c.Must.Nil(err)
	c.False(exists)

	_, err = b.BuildIn(context.Background(),
		tmp.Path("/site/blog"),
		tmp.Path("/site/index.html"))
	c.Must.NotNil(err)
	c.Contains(err.Error(), "is not under")
}

func TestBuildSkipsOutput(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, map[string]string{
		"/site/index.html":      `<img src="/a.jpg">`,
		"/site/public/old.html": `<img src="/old.jpg">`,
	})
	defer tmp.Remove()

	b := newBuilder(c, Output(tmp.Path("/site/public")))

	st, err := b.Build(context.Background(), tmp.Path("/site"))
	c.Must.Nil(err)
	c.Equal(st.Files, 1)

	c.Equal(tmp.ReadFile("/site/public/old.html"), `<img src="/old.jpg">`)
	c.Equal(tmp.ReadFile("/site/public/index.html"),
		`<img src="/cdn-cgi/image/f=auto/a.jpg"/>`)
}

func TestBuildExts(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, map[string]string{
		"/site/a.HTML":  `<img src="/a.jpg">`,
		"/site/b.xhtml": `<img src="/b.jpg">`,
		"/site/c.htm":   `<img src="/c.jpg">`,
	})
	defer tmp.Remove()

	b := newBuilder(c,
		Output(tmp.Path("/public")),
		Exts(".html", ".xhtml"))

	st, err := b.Build(context.Background(), tmp.Path("/site"))
	c.Must.Nil(err)
	c.Equal(st.Files, 2)

	exists, err := cfs.FileExists(tmp.Path("/public/c.htm"))
	c.Must.Nil(err)
	c.False(exists)
}

func TestBuildMinify(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, map[string]string{
		"/site/index.html": "<div>\n    <img src=\"/a.jpg\">\n</div>\n",
	})
	defer tmp.Remove()

	b := newBuilder(c,
		Output(tmp.Path("/public")),
		Minify(true))

	_, err := b.Build(context.Background(), tmp.Path("/site"))
	c.Must.Nil(err)

	out := tmp.ReadFile("/public/index.html")
	c.Contains(out, "/cdn-cgi/image/f=auto/a.jpg")
	c.NotContains(out, "\n    ")
}

func TestBuildDocument(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, map[string]string{
		"/site/index.html": `<!DOCTYPE html><html><head></head><body><img src="/a.jpg"></body></html>`,
	})
	defer tmp.Remove()

	b := newBuilder(c,
		Output(tmp.Path("/public")),
		Fragment(false))

	_, err := b.Build(context.Background(), tmp.Path("/site"))
	c.Must.Nil(err)

	c.Equal(tmp.ReadFile("/public/index.html"),
		`<!DOCTYPE html><html><head></head><body>`+
			`<img src="/cdn-cgi/image/f=auto/a.jpg"/></body></html>`)
}

func TestBuildErrors(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, site)
	defer tmp.Remove()

	boom := errors.New("boom")
	p := provider.Func(func(link string, opts provider.Options) (provider.Result, error) {
		return provider.Result{}, boom
	})

	u, err := url.Parse("https://example.com/")
	c.Must.Nil(err)

	b := New(newRewriter(c, provider.Use(p)),
		Base(u),
		Output(tmp.Path("/public")),
		Fragment(true),
		LogTo(c.Logf))

	st, err := b.Build(context.Background(),
		tmp.Path("/site"),
		tmp.Path("/narp"))
	c.Must.NotNil(err)
	c.Log(err)

	var be FileErrors
	c.Must.True(errors.As(err, &be))
	c.True(errors.Is(err, boom))
	c.Equal(len(be), 3)
	c.Equal(be[tmp.Path("/site/index.html")], []error{boom})
	c.Equal(be[tmp.Path("/site/blog/post.html")], []error{boom})
	c.Equal(len(be[tmp.Path("/narp")]), 1)

	// The file without images still builds
	c.Equal(st, Stats{Files: 1, Written: 1})

	exists, err := cfs.FileExists(filepath.Join(tmp.Path("/public"), "index.html"))
	c.Must.Nil(err)
	c.False(exists)

	c.Equal(tmp.ReadFile("/public/blog/none.htm"), site["/site/blog/none.htm"])
}

func TestBuildCanceled(t *testing.T) {
	c := check.New(t)

	tmp := testutil.NewTmpDir(c, site)
	defer tmp.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newBuilder(c, Output(tmp.Path("/public")))

	_, err := b.Build(ctx, tmp.Path("/site"))
	c.Equal(err, context.Canceled)
}

func TestFileErrors(t *testing.T) {
	c := check.New(t)

	fe := FileErrors{}
	c.Nil(fe.orNil())

	one := errors.New("one")
	fe.record("b.html", one)
	fe.record("a.html", errors.New("two\nlines"))
	fe.record("a.html", errors.New("three"))

	c.Equal(fe.Files(), []string{"a.html", "b.html"})
	c.True(errors.Is(fe.orNil(), one))

	msg := fe.Error()
	c.Contains(msg, "build: 2 pages were not rewritten:\n")
	c.Contains(msg, "a.html:\n")
	c.Contains(msg, ErrIndent+"two")
	c.Contains(msg, ErrIndent+"lines")
	c.Contains(msg, ErrIndent+"three")
	c.Contains(msg, ErrIndent+"one")

	a := strings.Index(msg, "a.html:")
	b := strings.Index(msg, "b.html:")
	c.True(a > 0 && a < b)

	single := FileErrors{}
	single.record("c.html", one)
	c.Contains(single.Error(), "build: 1 page was not rewritten:\n")
}
