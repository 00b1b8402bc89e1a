package build

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thatguystone/cog/stringc"
)

// ErrIndent prefixes each problem listed under a file in FileErrors
const ErrIndent = "    "

// FileErrors is returned when any pages could not be rewritten. It maps each
// page to every problem found with it; pages that aren't listed were written.
type FileErrors map[string][]error

func (fe FileErrors) record(path string, err error) {
	fe[path] = append(fe[path], err)
}

func (fe FileErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}

	return fe
}

// Files lists the pages that failed, sorted
func (fe FileErrors) Files() []string {
	paths := make([]string, 0, len(fe))
	for path := range fe {
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths
}

// Unwrap exposes every problem to errors.Is and errors.As
func (fe FileErrors) Unwrap() []error {
	var errs []error
	for _, path := range fe.Files() {
		errs = append(errs, fe[path]...)
	}

	return errs
}

func (fe FileErrors) Error() string {
	var b strings.Builder

	files := fe.Files()
	if len(files) == 1 {
		b.WriteString("build: 1 page was not rewritten:\n")
	} else {
		fmt.Fprintf(&b, "build: %d pages were not rewritten:\n", len(files))
	}

	for _, path := range files {
		fmt.Fprintf(&b, "%s:\n", path)

		for _, err := range fe[path] {
			b.WriteString(stringc.Indent(err.Error(), ErrIndent))
			b.WriteString("\n")
		}
	}

	return b.String()
}
