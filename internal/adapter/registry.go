package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a fresh, uninitialized adapter instance.
type Factory func() Adapter

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes an adapter kind available for lookup by name. Implementations
// register themselves in their package init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("adapter: duplicate registration for kind %q", kind))
	}
	factories[kind] = f
}

// New resolves an adapter kind to a fresh instance. The runner is generic
// over the Adapter interface and never branches on provider identity; this
// lookup happens once at run start.
func New(kind string) (Adapter, error) {
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown adapter kind: %q (registered: %v)", kind, Kinds())
	}
	return f(), nil
}

// Kinds returns the registered adapter kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
