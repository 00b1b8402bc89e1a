package imgcdn

// An Attr is a single attribute value to set
type Attr struct {
	Key string
	Val string
}

// Mutations are the attributes to set on a single element, in the order src,
// srcset, sizes, style. Attributes that aren't listed are left alone.
type Mutations []Attr

// Get gets the new value of an attribute, if it changes
func (ms Mutations) Get(key string) (string, bool) {
	for _, m := range ms {
		if m.Key == key {
			return m.Val, true
		}
	}

	return "", false
}

// Elem is a minimal, standalone Element
type Elem struct {
	Name  string
	Attrs map[string]string
}

// Tag implements Element
func (e *Elem) Tag() string {
	return e.Name
}

// Attr implements Element
func (e *Elem) Attr(key string) (string, bool) {
	v, ok := e.Attrs[key]
	return v, ok
}

// Apply sets all Mutations on this Elem
func (e *Elem) Apply(ms Mutations) {
	if len(ms) == 0 {
		return
	}

	if e.Attrs == nil {
		e.Attrs = make(map[string]string, len(ms))
	}

	for _, m := range ms {
		e.Attrs[m.Key] = m.Val
	}
}
