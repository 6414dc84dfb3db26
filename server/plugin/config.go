package plugin

// Config controls the behaviour of the plugin manager.
type Config struct {
	// Enabled specifies if the plugin subsystem should be initialised. When
	// false, no plugins will be enabled.
	Enabled bool
	// Directory is the base directory plugin state lives in. It defaults to
	// `plugins`.
	Directory string
	// DataDirectory controls where plugin data folders should be created. If
	// empty, a `data` directory inside Directory will be used. Relative
	// paths are resolved against Directory.
	DataDirectory string
	// Disabled lists registered plugins that should not be enabled on start.
	// They may still be enabled later through Manager.Enable.
	Disabled []string
}
