// Package catalogs registers all rule catalogs with the core registry.
// Import this package to ensure all catalogs are registered.
package catalogs

// This file exists to provide a single import point.
// Each catalog file uses init() to register its catalog.
