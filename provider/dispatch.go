package provider

// A Ref selects a Provider: either a registered name or a value used
// directly. If both are set, Provider wins.
type Ref struct {
	Name     string
	Provider Provider
}

// Named refers to a registered Provider
func Named(name string) Ref {
	return Ref{Name: name}
}

// Use refers to the given Provider directly, bypassing the registry
func Use(p Provider) Ref {
	return Ref{Provider: p}
}

// Resolve gets the Provider that ref refers to
func (ref Ref) Resolve() (Provider, error) {
	if ref.Provider != nil {
		return ref.Provider, nil
	}

	return Lookup(ref.Name)
}

func (ref Ref) String() string {
	if ref.Provider != nil && ref.Name == "" {
		return "<custom>"
	}

	return ref.Name
}

// Dispatch rewrites link with the Provider ref refers to. Errors from the
// Provider are returned untouched.
func Dispatch(link string, ref Ref, opts Options) (Result, error) {
	p, err := ref.Resolve()
	if err != nil {
		return Result{}, err
	}

	return p.Rewrite(link, opts)
}

// Validate checks opts against the referenced Provider, if it knows how
func Validate(ref Ref, opts Options) error {
	p, err := ref.Resolve()
	if err != nil {
		return err
	}

	v, ok := p.(Validator)
	if !ok {
		return nil
	}

	return v.ValidateOptions(opts)
}
