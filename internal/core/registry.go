package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Catalog)
	registryMu sync.RWMutex
)

// Register adds a catalog to the registry.
// Panics if the catalog is invalid or a catalog with the same name exists.
func Register(cat Catalog) {
	if err := cat.Validate(); err != nil {
		panic(fmt.Sprintf("invalid catalog: %v", err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[cat.Name]; exists {
		panic(fmt.Sprintf("catalog already registered: %s", cat.Name))
	}
	registry[cat.Name] = cat
}

// GetCatalog returns a catalog by name.
// The error wraps ErrUnknownCatalog when the name is not registered.
func GetCatalog(name string) (Catalog, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	cat, ok := registry[name]
	if !ok {
		return Catalog{}, fmt.Errorf("%w: %q", ErrUnknownCatalog, name)
	}
	return cat, nil
}

// Catalogs returns all registered catalogs sorted by name.
func Catalogs() []Catalog {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Catalog, 0, len(registry))
	for _, cat := range registry {
		result = append(result, cat)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// CatalogNames returns all registered catalog names, sorted.
func CatalogNames() []string {
	cats := Catalogs()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}

// ClearCatalogs removes all registered catalogs.
// Primarily useful for testing.
func ClearCatalogs() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Catalog)
}
