package provider

import (
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// Factory builds a backend the first time its name is requested.
type Factory func() (Provider, error)

// Registry resolves backends by name and caches one instance per name.
type Registry struct {
	factories *xsync.MapOf[string, Factory]
	instances *xsync.MapOf[string, Provider]
}

func NewRegistry() *Registry {
	return &Registry{
		factories: xsync.NewMapOf[string, Factory](),
		instances: xsync.NewMapOf[string, Provider](),
	}
}

// Register installs a factory. The last registration of a name wins and
// drops the instance built by the previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.factories.Store(name, factory)
	r.instances.Delete(name)
}

func (r *Registry) Get(name string) (Provider, error) {
	if instance, ok := r.instances.Load(name); ok {
		return instance, nil
	}
	factory, ok := r.factories.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}

	var buildErr error
	instance, ok := r.instances.Compute(name, func(old Provider, loaded bool) (Provider, bool) {
		if loaded {
			return old, false
		}
		built, err := factory()
		if err != nil {
			buildErr = err
			return nil, true
		}
		return built, false
	})
	if buildErr != nil {
		return nil, fmt.Errorf("failed to build provider %q: %w", name, buildErr)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return instance, nil
}

// Supported lists the registered names in order.
func (r *Registry) Supported() []string {
	var names []string
	r.factories.Range(func(name string, _ Factory) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// Reset forgets every factory and instance.
func (r *Registry) Reset() {
	r.instances.Clear()
	r.factories.Clear()
}

var Default = NewRegistry()

func Register(name string, factory Factory) {
	Default.Register(name, factory)
}

func GetProvider(name string) (Provider, error) {
	return Default.Get(name)
}

func GetSupportedProviders() []string {
	return Default.Supported()
}

func Reset() {
	Default.Reset()
}
