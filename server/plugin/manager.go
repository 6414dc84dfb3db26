package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

type pluginInstance[S any, C any] struct {
	name    string
	version string
	source  string
	plugin  Plugin
	api     *API[S, C]
	cancel  context.CancelFunc
}

func (pi pluginInstance[S, C]) info() Info {
	return Info{Name: pi.name, Version: pi.version, Source: pi.source}
}

// Manager coordinates the lifecycle of plugins registered with the server.
type Manager[S any, C any] struct {
	host       Host[S, C]
	cfg        Config
	log        *slog.Logger
	runtimeLog *slog.Logger

	registrations []Registration[S, C]

	once    sync.Once
	mu      sync.RWMutex
	plugins []pluginInstance[S, C]
	events  *eventHub[S, C]
}

// NewManager constructs a Manager using the provided host, configuration snapshot and the plugins that may be
// enabled.
func NewManager[S any, C any](host Host[S, C], cfg Config, registrations ...Registration[S, C]) *Manager[S, C] {
	manager := &Manager[S, C]{
		host: host,
		cfg: Config{
			Enabled:       cfg.Enabled,
			Directory:     cfg.Directory,
			DataDirectory: cfg.DataDirectory,
			Disabled:      slices.Clone(cfg.Disabled),
		},
	}
	for _, reg := range registrations {
		if reg.Factory == nil || strings.TrimSpace(reg.Name) == "" {
			continue
		}
		manager.registrations = append(manager.registrations, reg)
	}
	logger := host.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	manager.log = logger
	manager.runtimeLog = logger.With("subsystem", "plugin.runtime")
	manager.events = newEventHub(manager, logger)
	return manager
}

// Enabled reports whether the plugin subsystem should run.
func (m *Manager[S, C]) Enabled() bool {
	return m.cfg.Enabled
}

// DataRoot returns the root directory used for plugin data storage.
func (m *Manager[S, C]) DataRoot() string {
	return m.dataRoot()
}

// Available returns the names of all registered plugins, loaded or not.
func (m *Manager[S, C]) Available() []string {
	names := make([]string, 0, len(m.registrations))
	for _, reg := range m.registrations {
		names = append(names, reg.Name)
	}
	slices.Sort(names)
	return names
}

// LoadConfigured enables every registered plugin not disabled in the configuration.
func (m *Manager[S, C]) LoadConfigured() {
	m.once.Do(func() {
		m.loadConfigured()
	})
}

// Infos returns metadata for all loaded plugins.
func (m *Manager[S, C]) Infos() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, len(m.plugins))
	for i, p := range m.plugins {
		infos[i] = p.info()
	}
	return infos
}

// Plugin returns a loaded plugin by its case-insensitive name.
func (m *Manager[S, C]) Plugin(name string) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.plugins {
		if strings.EqualFold(p.name, name) {
			return p.plugin, true
		}
	}
	return nil, false
}

// Enable creates and enables the plugin registered under the case-insensitive name passed.
func (m *Manager[S, C]) Enable(name string) (info Info, err error) {
	if !m.Enabled() {
		return Info{}, ErrDisabled
	}
	reg, ok := m.registration(name)
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	if err := m.ensureDataRoot(); err != nil {
		return Info{}, fmt.Errorf("prepare plugin data storage: %w", err)
	}

	m.mu.RLock()
	for _, existing := range m.plugins {
		if strings.EqualFold(existing.source, reg.Name) {
			m.mu.RUnlock()
			return existing.info(), ErrAlreadyLoaded
		}
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithCancel(context.Background())
	api := newAPI(m, m.host, reg.Name)
	api.setContext(ctx)
	initialDataDir := m.pluginDataDirectory(reg.Name)
	if err := os.MkdirAll(initialDataDir, 0o755); err != nil {
		cancel()
		return Info{}, fmt.Errorf("create plugin data directory: %w", err)
	}
	api.setDataDirectory(initialDataDir)
	defer func() {
		if err != nil {
			cancel()
			m.events.clear(api.pluginName())
		}
	}()
	inst, err := m.construct(reg, api)
	if err != nil {
		return Info{}, fmt.Errorf("initialise plugin %s: %w", reg.Name, err)
	}

	previousName := api.pluginName()
	pluginName := inst.Name()
	if pluginName == "" {
		pluginName = previousName
	}
	api.setName(pluginName)
	if previousName != pluginName {
		m.events.rename(previousName, pluginName)
	}

	if targetDir := m.pluginDataDirectory(pluginName); targetDir != api.DataDirectory() {
		if err := m.migrateDataDirectory(api.DataDirectory(), targetDir); err != nil {
			m.runtimeLog.Error("Migrate plugin data directory.", "plugin", pluginName, "error", err)
		} else {
			api.setDataDirectory(targetDir)
		}
	}

	version := ""
	if v, ok := inst.(VersionedPlugin); ok {
		version = v.Version()
	}

	entry := pluginInstance[S, C]{
		name:    pluginName,
		version: version,
		source:  reg.Name,
		plugin:  inst,
		api:     api,
		cancel:  cancel,
	}

	m.mu.Lock()
	for _, existing := range m.plugins {
		if strings.EqualFold(existing.name, entry.name) {
			m.mu.Unlock()
			if err := entry.plugin.Close(); err != nil {
				m.log.Error("Close conflicting plugin instance.", "error", err, "name", entry.name)
			}
			return Info{}, fmt.Errorf("%w: %s", ErrNameConflict, entry.name)
		}
	}
	m.plugins = append(m.plugins, entry)
	m.mu.Unlock()

	attrs := []any{"name", entry.name, "source", entry.source}
	if entry.version != "" {
		attrs = append(attrs, "version", entry.version)
	}
	m.log.Info("Plugin enabled.", attrs...)

	return entry.info(), nil
}

// construct calls the factory of reg, converting a panic into an error.
func (m *Manager[S, C]) construct(reg Registration[S, C], api *API[S, C]) (p Plugin, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.runtimeLog.Error("Plugin panic during initialisation.", "plugin", reg.Name, "panic", r, "stack", string(debug.Stack()))
			p, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	p, err = reg.Factory(api)
	if err == nil && p == nil {
		err = errors.New("factory returned nil")
	}
	return p, err
}

// Disable disables a plugin by its case-insensitive name and removes it from the manager.
func (m *Manager[S, C]) Disable(name string) (Info, error) {
	if !m.Enabled() {
		return Info{}, ErrDisabled
	}

	m.mu.Lock()
	index := -1
	var entry pluginInstance[S, C]
	for i, p := range m.plugins {
		if strings.EqualFold(p.name, name) || strings.EqualFold(p.source, name) {
			index = i
			entry = p
			m.plugins = append(m.plugins[:i], m.plugins[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if index == -1 {
		return Info{}, ErrNotFound
	}

	if entry.cancel != nil {
		entry.cancel()
	}
	m.events.clear(entry.name)
	if err := entry.plugin.Close(); err != nil {
		m.log.Error("Close plugin.", "error", err, "name", entry.name)
	}

	m.log.Info("Plugin disabled.", "name", entry.name)
	return entry.info(), nil
}

// Reload disables and then re-enables a plugin by name.
func (m *Manager[S, C]) Reload(name string) (Info, error) {
	info, err := m.Disable(name)
	if err != nil {
		return Info{}, err
	}

	reloaded, err := m.Enable(info.Source)
	if err != nil {
		return Info{}, err
	}

	attrs := []any{"name", reloaded.Name}
	if reloaded.Version != "" {
		attrs = append(attrs, "version", reloaded.Version)
	}
	m.log.Info("Plugin reloaded.", attrs...)
	return reloaded, nil
}

// DisableAll disables all currently loaded plugins in reverse load order.
// The returned slice contains metadata for every plugin that was disabled in
// the order the operations were performed.
func (m *Manager[S, C]) DisableAll() ([]Info, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}

	m.mu.RLock()
	names := make([]string, len(m.plugins))
	for i, p := range m.plugins {
		names[i] = p.name
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		info, err := m.Disable(names[i])
		if err != nil {
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Shutdown disables all plugins in reverse load order.
func (m *Manager[S, C]) Shutdown() {
	m.mu.Lock()
	plugins := slices.Clone(m.plugins)
	m.plugins = nil
	m.mu.Unlock()

	for i := len(plugins) - 1; i >= 0; i-- {
		entry := plugins[i]
		if entry.cancel != nil {
			entry.cancel()
		}
		m.events.clear(entry.name)
		if err := entry.plugin.Close(); err != nil {
			m.log.Error("Disable plugin.", "error", err, "name", entry.name)
			continue
		}
		m.log.Info("Plugin disabled.", "name", entry.name)
	}
}

func (m *Manager[S, C]) loadConfigured() {
	if !m.cfg.Enabled {
		m.log.Debug("Plugin system disabled.")
		return
	}
	if len(m.registrations) == 0 {
		m.log.Debug("No plugins registered.")
		return
	}
	for _, name := range m.Available() {
		if slices.ContainsFunc(m.cfg.Disabled, func(d string) bool { return strings.EqualFold(strings.TrimSpace(d), name) }) {
			m.log.Info("Plugin disabled in configuration.", "name", name)
			continue
		}
		if _, err := m.Enable(name); err != nil {
			m.log.Error("Enable plugin.", "error", err, "name", name)
		}
	}
}

func (m *Manager[S, C]) registration(name string) (Registration[S, C], bool) {
	name = strings.TrimSpace(name)
	for _, reg := range m.registrations {
		if strings.EqualFold(reg.Name, name) {
			return reg, true
		}
	}
	return Registration[S, C]{}, false
}

func (m *Manager[S, C]) directory() string {
	if m.cfg.Directory == "" {
		return "plugins"
	}
	return m.cfg.Directory
}

func (m *Manager[S, C]) dataRoot() string {
	dir := m.cfg.DataDirectory
	if dir == "" {
		dir = filepath.Join(m.directory(), "data")
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.directory(), dir)
	}
	return filepath.Clean(dir)
}

func (m *Manager[S, C]) ensureDataRoot() error {
	return os.MkdirAll(m.dataRoot(), 0o755)
}

func (m *Manager[S, C]) pluginDataDirectory(name string) string {
	return filepath.Join(m.dataRoot(), sanitizePluginDirectory(name))
}

func (m *Manager[S, C]) migrateDataDirectory(from, to string) error {
	if from == to {
		return nil
	}
	if to == "" {
		return fmt.Errorf("empty target data directory")
	}
	if from == "" {
		return os.MkdirAll(to, 0o755)
	}
	info, err := os.Stat(from)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(to, 0o755)
		}
		return fmt.Errorf("stat source data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source data directory is not a directory")
	}
	if _, err := os.Stat(to); err == nil {
		// The target already holds data written under the plugin's final name.
		return os.Remove(from)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("ensure target parent: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename data directory: %w", err)
	}
	return nil
}

func (m *Manager[S, C]) handlePluginPanic(name string, reason any) {
	pluginName := name
	if pluginName == "" {
		pluginName = "plugin"
	}
	stack := debug.Stack()
	m.events.clear(pluginName)
	m.runtimeLog.Error("Plugin panic.", "plugin", pluginName, "panic", reason, "stack", string(stack))
	go func() {
		info, err := m.Disable(pluginName)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				m.runtimeLog.Error("Disable panic plugin.", "plugin", pluginName, "error", err)
			}
			return
		}
		attrs := []any{"name", info.Name}
		if info.Version != "" {
			attrs = append(attrs, "version", info.Version)
		}
		m.runtimeLog.Warn("Plugin disabled after panic.", attrs...)
	}()
}

func sanitizePluginDirectory(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "plugin"
	}
	lower := strings.ToLower(trimmed)
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, lower)
	sanitized = strings.Trim(sanitized, "-_.")
	if sanitized == "" {
		return "plugin"
	}
	return sanitized
}

// PlayerHandlerWrap wraps the provided handler so plugin callbacks are invoked alongside existing logic.
func (m *Manager[S, C]) PlayerHandlerWrap(p *player.Player, base player.Handler) player.Handler {
	return m.events.wrapPlayer(p, base)
}

// WorldHandlerWrap wraps the world handler to invoke plugin callbacks.
func (m *Manager[S, C]) WorldHandlerWrap(w *world.World, base world.Handler) world.Handler {
	return m.events.wrapWorld(w, base)
}
