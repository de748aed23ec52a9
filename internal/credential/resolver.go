package credential

import "os"

// Source is a structured secrets store. Any error means the value is not
// available from this source.
type Source interface {
	Lookup(key string) (string, error)
}

// Resolver finds a credential by name, first in Store, then in the process
// environment.
type Resolver struct {
	Key   string
	Store Source
}

func NewResolver(key string, store Source) *Resolver {
	return &Resolver{Key: key, Store: store}
}

// Resolve returns the first non-empty value for r.Key.
func (r *Resolver) Resolve() (string, bool) {
	if v, ok := r.fromStore(); ok {
		return v, true
	}
	if v := os.Getenv(r.Key); v != "" {
		return v, true
	}
	return "", false
}

// fromStore treats a nil store, a failing store and a missing key the same
// way: the store is skipped.
func (r *Resolver) fromStore() (string, bool) {
	if r.Store == nil {
		return "", false
	}
	v, err := r.Store.Lookup(r.Key)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}
