package builtin

import (
	"slices"
	"sort"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server"
)

type pluginListCommand struct {
	List cmd.SubCommand `cmd:"list"`
	srv  serverAdapter
}

type pluginEnableCommand struct {
	Enable cmd.SubCommand `cmd:"enable"`
	Name   string         `cmd:"name"`
	srv    serverAdapter
}

type pluginDisableCommand struct {
	Disable cmd.SubCommand `cmd:"disable"`
	Name    string         `cmd:"name"`
	srv     serverAdapter
}

type pluginReloadCommand struct {
	Reload cmd.SubCommand `cmd:"reload"`
	Name   string         `cmd:"name"`
	srv    serverAdapter
}

const pluginPermission = "server.command.plugin"

func newPluginCommand(srv serverAdapter) cmd.Command {
	return cmd.New(
		"plugin",
		"Manages plugins.",
		[]string{"pl"},
		pluginListCommand{srv: srv},
		pluginEnableCommand{srv: srv},
		pluginDisableCommand{srv: srv},
		pluginReloadCommand{srv: srv},
	)
}

func (p pluginListCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.PluginsEnabled() {
		o.Print("Plugin subsystem disabled.")
		return
	}
	plugins := append([]server.PluginInfo(nil), p.srv.Plugins()...)
	sort.SliceStable(plugins, func(i, j int) bool {
		return strings.ToLower(plugins[i].Name) < strings.ToLower(plugins[j].Name)
	})
	for _, info := range plugins {
		if info.Version != "" {
			o.Printf("%s v%s (enabled)", info.Name, info.Version)
			continue
		}
		o.Printf("%s (enabled)", info.Name)
	}
	for _, name := range p.srv.AvailablePlugins() {
		loaded := slices.ContainsFunc(plugins, func(info server.PluginInfo) bool { return strings.EqualFold(info.Source, name) })
		if !loaded {
			o.Printf("%s (disabled)", name)
		}
	}
	if len(p.srv.AvailablePlugins()) == 0 {
		o.Print("No plugins registered.")
	}
}

func (p pluginListCommand) Allow(src cmd.Source) bool {
	return allowed(p.srv, src, pluginPermission)
}

func (p pluginEnableCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.PluginsEnabled() {
		o.Error("Plugin subsystem disabled.")
		return
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		o.Error("Plugin name is required.")
		return
	}
	info, err := p.srv.EnablePlugin(name)
	if err != nil {
		o.Error(err)
		return
	}
	if info.Version != "" {
		o.Printf("Enabled %s v%s.", info.Name, info.Version)
		return
	}
	o.Printf("Enabled %s.", info.Name)
}

func (p pluginEnableCommand) Allow(src cmd.Source) bool {
	return allowed(p.srv, src, pluginPermission)
}

func (p pluginDisableCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.PluginsEnabled() {
		o.Error("Plugin subsystem disabled.")
		return
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		o.Error("Plugin name is required.")
		return
	}
	info, err := p.srv.DisablePlugin(name)
	if err != nil {
		o.Error(err)
		return
	}
	o.Printf("Disabled %s.", info.Name)
}

func (p pluginDisableCommand) Allow(src cmd.Source) bool {
	return allowed(p.srv, src, pluginPermission)
}

func (p pluginReloadCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if !p.srv.PluginsEnabled() {
		o.Error("Plugin subsystem disabled.")
		return
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		o.Error("Plugin name is required.")
		return
	}
	info, err := p.srv.ReloadPlugin(name)
	if err != nil {
		o.Error(err)
		return
	}
	if info.Version != "" {
		o.Printf("Reloaded %s v%s.", info.Name, info.Version)
		return
	}
	o.Printf("Reloaded %s.", info.Name)
}

func (p pluginReloadCommand) Allow(src cmd.Source) bool {
	return allowed(p.srv, src, pluginPermission)
}
