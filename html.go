package imgcdn

import (
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type selElement struct {
	sel *goquery.Selection
}

func (el selElement) Tag() string {
	return goquery.NodeName(el.sel)
}

func (el selElement) Attr(key string) (string, bool) {
	return el.sel.Attr(key)
}

// Node rewrites every image in the tree rooted at root, in place. It returns
// how many images were changed.
//
// If the tree has a <base href="">, relative links are resolved against it.
func (rw *Rewriter) Node(root *html.Node) (n int, err error) {
	doc := goquery.NewDocumentFromNode(root)

	r := rw
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		r = rw.withBaseHref(href)
	}

	doc.Find("img[src]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		var muts Mutations

		muts, err = r.Rewrite(selElement{sel: sel})
		if err != nil {
			return false
		}

		for _, m := range muts {
			sel.SetAttr(m.Key, m.Val)
		}

		if len(muts) > 0 {
			n++
		}

		return true
	})

	return
}

func (rw *Rewriter) withBaseHref(href string) *Rewriter {
	u, err := url.Parse(href)
	if err != nil {
		rw.logf("W: imgcdn: ignoring invalid <base href=%q>: %v", href, err)
		return rw
	}

	if rw.base != nil {
		u = rw.base.ResolveReference(u)
	}

	return rw.WithBase(u)
}

// Document rewrites all images in a full HTML document
func (rw *Rewriter) Document(w io.Writer, r io.Reader) (int, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse document")
	}

	n, err := rw.Node(doc)
	if err != nil {
		return n, err
	}

	return n, html.Render(w, doc)
}

// Fragment rewrites all images in an HTML fragment, as if it were the
// contents of <body>. Unlike Document, the output isn't wrapped in
// <html><head></head><body>.
func (rw *Rewriter) Fragment(w io.Writer, r io.Reader) (int, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}

	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse fragment")
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, node := range nodes {
		root.AppendChild(node)
	}

	n, err := rw.Node(root)
	if err != nil {
		return n, err
	}

	for c := root.FirstChild; c != nil; c = c.NextSibling {
		err = html.Render(w, c)
		if err != nil {
			return n, err
		}
	}

	return n, nil
}
