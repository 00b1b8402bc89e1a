package imgcdn

import "strings"

type srcSet []imgSrc

type imgSrc struct {
	url         string
	descriptors []string
}

func (ss srcSet) String() string {
	var b strings.Builder

	for i, src := range ss {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(src.url)

		for _, d := range src.descriptors {
			b.WriteString(" ")
			b.WriteString(d)
		}
	}

	return b.String()
}
