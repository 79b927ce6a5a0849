package linedb

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// Registry maps a file path to the one open Store using it.
// It's owned by the program, there's no global registry.
type Registry struct {
	opts *Options

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry. Stores are opened with opts, which can be nil
func NewRegistry(opts *Options) *Registry {
	return &Registry{
		opts:   opts,
		stores: map[string]*Store{},
	}
}

func registryKey(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("linedb: failed to get absolute path for %s: %w", path, err)
	}
	return filepath.Clean(absPath), nil
}

// Open returns the Store already open for path or opens a new one
func (r *Registry) Open(path string) (*Store, error) {
	return r.open(path, false)
}

// OpenExclusive opens a Store for path. It fails with ErrAlreadyOpen
// if the registry already has a Store for path.
func (r *Registry) OpenExclusive(path string) (*Store, error) {
	return r.open(path, true)
}

func (r *Registry) open(path string, exclusive bool) (*Store, error) {
	key, err := registryKey(path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.stores[key]; s != nil {
		// a store closed directly with Store.Close() is replaced
		if !s.isClosed() {
			if exclusive {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyOpen, key)
			}
			return s, nil
		}
		delete(r.stores, key)
	}
	s, err := Open(key, r.opts)
	if err != nil {
		return nil, err
	}
	r.stores[key] = s
	return s, nil
}

// Close removes s from the registry and closes it
func (r *Registry) Close(s *Store) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	if r.stores[s.path] == s {
		delete(r.stores, s.path)
	}
	r.mu.Unlock()
	return s.Close()
}

// CloseAll closes all stores in the registry
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	stores := r.stores
	r.stores = map[string]*Store{}
	r.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns number of open stores
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
