package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	dfserver "github.com/df-mc/dragonfly/server"
	"github.com/dm-vev/silkspawner/server/entity"
	"github.com/dm-vev/silkspawner/server/permission"
	"github.com/dm-vev/silkspawner/server/plugin"
	"github.com/pelletier/go-toml"
)

// Config contains options for starting a Minecraft server with plugin support. It extends the Dragonfly
// server configuration.
type Config struct {
	dfserver.Config
	// Plugins configures the plugin manager. Plugins are only enabled if
	// Plugins.Enabled is true.
	Plugins plugin.Config
	// Permissions holds the permissions granted to players. If nil, players
	// hold no permissions and the console holds all of them.
	Permissions *permission.Store
}

// New creates a Server using fields of conf. The registrations passed are the plugins the server may enable.
// Plugins are enabled by calling Server.LoadPlugins.
func (conf Config) New(registrations ...PluginRegistration) *Server {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if len(conf.Entities.Types()) == 0 {
		conf.Entities = entity.Registry
	}
	if conf.Permissions == nil {
		conf.Permissions = permission.New()
	}
	srv := &Server{Server: conf.Config.New(), conf: conf}
	srv.plugins = plugin.NewManager(newPluginHost(srv), conf.Plugins, registrations...)
	for _, w := range srv.Worlds() {
		w.Handle(srv.plugins.WorldHandlerWrap(w, w.Handler()))
	}
	return srv
}

// UserConfig is the user configuration for the server. It holds the settings of a Dragonfly server together
// with settings for plugins and permissions. UserConfig may be serialised and can be converted to a Config by
// calling UserConfig.Config().
type UserConfig struct {
	// Network holds settings related to network aspects of the server.
	Network struct {
		// Address is the address on which the server should listen. Players may
		// connect to this address in order to join.
		Address string
	}
	Server struct {
		// Name is the name of the server as it shows up in the server list.
		Name string
		// AuthEnabled controls whether players must be connected to Xbox Live
		// in order to join the server.
		AuthEnabled bool
		// DisableJoinQuitMessages specifies if default join and quit messages
		// for players should be disabled.
		DisableJoinQuitMessages bool
	}
	World struct {
		// SaveData controls whether a world's data will be saved and loaded.
		// If true, the server will use the default LevelDB data provider and if
		// false, an empty provider will be used.
		SaveData bool
		// Folder is the folder that the data of the world resides in.
		Folder string
	}
	Players struct {
		// MaxCount is the maximum amount of players allowed to join the server
		// at the same time. If set to 0, the amount of maximum players will
		// grow every time a player joins.
		MaxCount int
		// MaximumChunkRadius is the maximum chunk radius that players may set
		// in their settings. If they try to set it above this number, it will
		// be capped and set to the max.
		MaximumChunkRadius int
		// SaveData controls whether a player's data will be saved and loaded.
		SaveData bool
		// Folder controls where the player data will be stored by the default
		// LevelDB player provider if it is enabled.
		Folder string
	}
	Resources struct {
		// AutoBuildPack is if the server should automatically generate a
		// resource pack for custom features.
		AutoBuildPack bool
		// Folder controls the location where resource packs will be loaded
		// from.
		Folder string
		// Required is a boolean to force the client to load the resource pack
		// on join. If they do not accept, they'll have to leave the server.
		Required bool
	}
	Plugins struct {
		// Enabled controls if registered plugins are enabled on start.
		Enabled bool
		// Directory is the directory plugin state is stored in.
		Directory string
		// Disabled lists plugins that should not be enabled on start.
		Disabled []string
	}
	Permissions struct {
		// File is the path to the TOML file that stores permission grants.
		File string
		// Default lists permission patterns granted to every player when the
		// file is first created.
		Default []string
	}
}

// Config converts a UserConfig to a Config, so that it may be used for creating a Server. An error is
// returned if creating data providers, loading resources or loading permissions failed.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	if log == nil {
		log = slog.Default()
	}
	base := dfserver.DefaultConfig()
	base.Network.Address = uc.Network.Address
	base.Server.Name = uc.Server.Name
	base.Server.AuthEnabled = uc.Server.AuthEnabled
	base.Server.DisableJoinQuitMessages = uc.Server.DisableJoinQuitMessages
	base.World.SaveData = uc.World.SaveData
	base.World.Folder = uc.World.Folder
	base.Players.MaxCount = uc.Players.MaxCount
	base.Players.MaximumChunkRadius = uc.Players.MaximumChunkRadius
	base.Players.SaveData = uc.Players.SaveData
	base.Players.Folder = uc.Players.Folder
	base.Resources.AutoBuildPack = uc.Resources.AutoBuildPack
	base.Resources.Folder = uc.Resources.Folder
	base.Resources.Required = uc.Resources.Required

	dfConf, err := base.Config(log)
	if err != nil {
		return Config{}, err
	}
	conf := Config{
		Config: dfConf,
		Plugins: plugin.Config{
			Enabled:   uc.Plugins.Enabled,
			Directory: uc.Plugins.Directory,
			Disabled:  uc.Plugins.Disabled,
		},
	}
	conf.Entities = entity.Registry

	permFile := strings.TrimSpace(uc.Permissions.File)
	if permFile == "" {
		permFile = "permissions.toml"
	}
	conf.Permissions, err = permission.Load(permFile, uc.Permissions.Default...)
	if err != nil {
		return conf, fmt.Errorf("load permissions: %w", err)
	}
	return conf, nil
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	base := dfserver.DefaultConfig()
	c := UserConfig{}
	c.Network.Address = base.Network.Address
	c.Server.Name = "SilkSpawner Server"
	c.Server.AuthEnabled = base.Server.AuthEnabled
	c.World.SaveData = true
	c.World.Folder = "world"
	c.Players.MaximumChunkRadius = base.Players.MaximumChunkRadius
	c.Players.SaveData = true
	c.Players.Folder = "players"
	c.Resources.AutoBuildPack = true
	c.Resources.Folder = "resources"
	c.Plugins.Enabled = true
	c.Plugins.Directory = "plugins"
	c.Permissions.File = "permissions.toml"
	c.Permissions.Default = []string{"silktouchplus.drop.*", "silktouchplus.hologram"}
	return c
}

// ReadConfig reads the configuration from the file at the path passed. If the file does not exist, it is
// created with the default configuration.
func ReadConfig(path string) (UserConfig, error) {
	c := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return c, fmt.Errorf("encode default config: %v", err)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return c, fmt.Errorf("create config directory: %v", err)
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return c, fmt.Errorf("create default config: %v", err)
		}
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %v", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode config: %v", err)
	}
	return c, nil
}
