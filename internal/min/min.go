// Package min minifies rewritten HTML on its way to disk
package min

import (
	"io"

	"github.com/tdewolff/minify"
	min_css "github.com/tdewolff/minify/css"
	min_html "github.com/tdewolff/minify/html"
	min_js "github.com/tdewolff/minify/js"
)

// HTMLType is the mime type that HTML is minified as
const HTMLType = "text/html"

var min = minify.New()

func init() {
	// Inline <style> and <script> are minified through these
	min.AddFunc("text/css", min_css.Minify)
	min.AddFunc("text/javascript", min_js.Minify)

	min.Add(HTMLType, &min_html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
}

// Minify minifies the content in r as mime, writing it to w
func Minify(mime string, w io.Writer, r io.Reader) error {
	return min.Minify(mime, w, r)
}

// Writer wraps w so that everything written to it is minified as mime. The
// returned writer must be closed to flush it.
func Writer(mime string, w io.Writer) io.WriteCloser {
	return min.Writer(mime, w)
}
