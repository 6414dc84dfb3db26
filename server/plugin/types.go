package plugin

import "errors"

// Plugin defines an extension compiled into the server that can interact with it through an API.
type Plugin interface {
	// Name returns the display name of the plugin. It should be unique for the
	// lifetime of the server process.
	Name() string
	// Close releases all resources held by the plugin. It is called once when
	// the server shuts down or when the plugin is disabled.
	Close() error
}

// VersionedPlugin may be implemented by plugins to expose a version string.
type VersionedPlugin interface {
	Version() string
}

// PluginFactory constructs a Plugin. The returned Plugin is enabled immediately and must be ready to handle
// callbacks.
type PluginFactory[S any, C any] func(api *API[S, C]) (Plugin, error)

// Registration binds the name a plugin is enabled and disabled by to its factory.
type Registration[S any, C any] struct {
	Name    string
	Factory PluginFactory[S, C]
}

// Info describes a plugin currently loaded by the manager.
type Info struct {
	Name    string
	Version string
	// Source is the name of the Registration the plugin was created from.
	Source string
}

var (
	// ErrDisabled is returned when the plugin subsystem is disabled.
	ErrDisabled = errors.New("plugin subsystem disabled")
	// ErrAlreadyLoaded is returned when attempting to enable a plugin that has
	// already been loaded.
	ErrAlreadyLoaded = errors.New("plugin already loaded")
	// ErrNameConflict is returned when another loaded plugin already uses the
	// same case-insensitive name.
	ErrNameConflict = errors.New("plugin name already registered")
	// ErrNotFound is returned when attempting to disable or reload a plugin that
	// is not currently loaded.
	ErrNotFound = errors.New("plugin not found")
	// ErrUnknownPlugin is returned when enabling a plugin that no Registration provides.
	ErrUnknownPlugin = errors.New("no plugin registered under that name")
)
