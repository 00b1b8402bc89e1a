// Package provider defines how image links are rewritten for a CDN and keeps
// the registry of named providers
package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Options are provider-specific. Each provider documents the concrete type it
// expects.
type Options interface{}

// A Provider rewrites a single link. It must not modify its inputs.
//
// A link that can't be rewritten should be reported through an Unchanged
// Result rather than an error: errors abort the whole document.
type Provider interface {
	Rewrite(link string, opts Options) (Result, error)
}

// Func adapts a function to a Provider
type Func func(link string, opts Options) (Result, error)

// Rewrite implements Provider
func (f Func) Rewrite(link string, opts Options) (Result, error) {
	return f(link, opts)
}

// A Validator is implemented by Providers that can check Options before any
// link is rewritten
type Validator interface {
	ValidateOptions(opts Options) error
}

// Result is the outcome of a single rewrite
type Result struct {
	Link   string // Rewritten link, or the original if Reason is set
	Reason error  // Why Link is unchanged
}

// Rewritten creates a Result for a link that was rewritten
func Rewritten(link string) Result {
	return Result{Link: link}
}

// Unchanged creates a Result for a link that was passed through as-is
func Unchanged(link string, reason error) Result {
	return Result{
		Link:   link,
		Reason: reason,
	}
}

// Changed reports if Link was rewritten
func (r Result) Changed() bool {
	return r.Reason == nil
}

// An UnknownError is returned when a name isn't registered
type UnknownError struct {
	Name string
}

func (err UnknownError) Error() string {
	return fmt.Sprintf("unknown provider %q (registered: %s)",
		err.Name, strings.Join(Names(), ", "))
}

var (
	rwmtx     sync.RWMutex
	providers = map[string]Provider{}
)

// Register makes a Provider available by name. It panics if the name is
// empty, the Provider is nil, or the name is already taken; call it from
// init().
func Register(name string, p Provider) {
	if name == "" {
		panic(fmt.Errorf("provider: empty name"))
	}

	if p == nil {
		panic(fmt.Errorf("provider: nil provider for %q", name))
	}

	rwmtx.Lock()
	defer rwmtx.Unlock()

	if _, dup := providers[name]; dup {
		panic(fmt.Errorf("provider: %q registered twice", name))
	}

	providers[name] = p
}

// Lookup gets a registered Provider by name
func Lookup(name string) (Provider, error) {
	rwmtx.RLock()
	p, ok := providers[name]
	rwmtx.RUnlock()

	if !ok {
		return nil, UnknownError{Name: name}
	}

	return p, nil
}

// Names lists all registered providers, sorted
func Names() []string {
	rwmtx.RLock()
	defer rwmtx.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
