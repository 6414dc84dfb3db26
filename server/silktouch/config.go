package silktouch

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dm-vev/silkspawner/server/entity"
	"github.com/dm-vev/silkspawner/server/spawner"
	"gopkg.in/yaml.v3"
)

//go:embed config.yml
var defaultConfigFile []byte

// Config is the configuration of the plugin, stored as config.yml in its data directory.
type Config struct {
	// Language is the tag of the language messages are sent in, or auto.
	Language string `yaml:"language"`
	Drop     struct {
		BreakTools     []string `yaml:"break-tools"`
		SilkTouchLevel int      `yaml:"silk-touch-level"`
		SpawnerItem    struct {
			Glowing bool `yaml:"glowing"`
		} `yaml:"spawner-item"`
	} `yaml:"drop"`
	SilkTouchTwo struct {
		PreventCustomRepair bool `yaml:"prevent-custom-silk-touch-repair"`
		AllowBookCombining  bool `yaml:"allow-silk-touch-book-combining"`
	} `yaml:"silk-touch-two"`
	Holograms struct {
		Enabled bool   `yaml:"enabled"`
		Backend string `yaml:"backend"`
	} `yaml:"holograms"`
	Health struct {
		SpawnDamage         float64 `yaml:"spawn-damage"`
		ShowDamageAnimation bool    `yaml:"show-damage-animation"`
		DecimalSeparator    string  `yaml:"decimal-separator"`
		SpecialRepairItem   struct {
			Item         string  `yaml:"item"`
			Glowing      bool    `yaml:"glowing"`
			DropChance   float64 `yaml:"drop-chance"`
			RepairAmount float64 `yaml:"repair-amount"`
		} `yaml:"special-repair-item"`
		LootRepairAmount         float64 `yaml:"loot-repair-amount"`
		MaxRepairHealth          float64 `yaml:"max-repair-health"`
		OnlySpawnerLootCanRepair bool    `yaml:"only-spawner-loot-can-repair"`
	} `yaml:"health"`
	SpawnWhitelist []string `yaml:"spawn-whitelist"`
	Index          struct {
		Enabled bool   `yaml:"enabled"`
		File    string `yaml:"file"`
	} `yaml:"index"`
}

// DefaultConfig returns the configuration written to config.yml when it does not exist.
func DefaultConfig() Config {
	c := Config{Language: "en-US"}
	c.Drop.BreakTools = []string{"DIAMOND_PICKAXE", "NETHERITE_PICKAXE"}
	c.Drop.SilkTouchLevel = 2
	c.Drop.SpawnerItem.Glowing = true
	c.SilkTouchTwo.PreventCustomRepair = true
	c.SilkTouchTwo.AllowBookCombining = true
	c.Holograms.Enabled = true
	c.Holograms.Backend = "registry"
	c.Health.SpawnDamage = 0.0005
	c.Health.ShowDamageAnimation = true
	c.Health.DecimalSeparator = "."
	c.Health.SpecialRepairItem.Item = "ENDER_EYE"
	c.Health.SpecialRepairItem.Glowing = true
	c.Health.SpecialRepairItem.DropChance = 0.01
	c.Health.SpecialRepairItem.RepairAmount = 2.0
	c.Health.LootRepairAmount = 0.0010
	c.Health.MaxRepairHealth = 1.0
	c.Health.OnlySpawnerLootCanRepair = true
	c.Index.Enabled = true
	c.Index.File = "spawners.db"
	return c
}

// LoadConfig reads the configuration at path. If the file does not exist, the default configuration is
// written to it and returned. If the file cannot be decoded at all, prev is returned together with the
// error. Values of the wrong type keep their default value and are reported through warnings, as are
// values that were out of range and unknown creature types in the spawn whitelist.
func LoadConfig(path string, prev Config) (conf Config, warnings []string, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return prev, nil, fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(path, defaultConfigFile, 0o644); err != nil {
			return prev, nil, fmt.Errorf("write default config: %w", err)
		}
		conf = DefaultConfig()
		return conf, conf.normalise(), nil
	} else if err != nil {
		return prev, nil, fmt.Errorf("read config: %w", err)
	}
	return decodeConfig(data, prev)
}

func decodeConfig(data []byte, prev Config) (Config, []string, error) {
	conf := DefaultConfig()
	var warnings []string
	if err := yaml.Unmarshal(data, &conf); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return prev, nil, fmt.Errorf("decode config: %w", err)
		}
		warnings = append(warnings, typeErr.Errors...)
	}
	return conf, append(warnings, conf.normalise()...), nil
}

// normalise brings every value into its valid range and returns a warning for every value changed.
func (c *Config) normalise() (warnings []string) {
	warn := func(format string, a ...any) {
		warnings = append(warnings, fmt.Sprintf(format, a...))
	}
	nonNegative := func(name string, v *float64) {
		if math.IsNaN(*v) || *v < 0 {
			warn("%s must not be negative, using 0", name)
			*v = 0
		}
	}

	if strings.TrimSpace(c.Language) == "" {
		c.Language = "en-US"
	}
	tools := make([]string, 0, len(c.Drop.BreakTools))
	for _, t := range c.Drop.BreakTools {
		if t = toolName(t); t != "" && !slices.Contains(tools, t) {
			tools = append(tools, t)
		}
	}
	c.Drop.BreakTools = tools
	if c.Drop.SilkTouchLevel < 0 {
		warn("drop.silk-touch-level must not be negative, using 0")
		c.Drop.SilkTouchLevel = 0
	}

	nonNegative("health.spawn-damage", &c.Health.SpawnDamage)
	nonNegative("health.loot-repair-amount", &c.Health.LootRepairAmount)
	nonNegative("health.special-repair-item.repair-amount", &c.Health.SpecialRepairItem.RepairAmount)
	nonNegative("health.special-repair-item.drop-chance", &c.Health.SpecialRepairItem.DropChance)
	if c.Health.SpecialRepairItem.DropChance > 100 {
		warn("health.special-repair-item.drop-chance must not exceed 100, using 100")
		c.Health.SpecialRepairItem.DropChance = 100
	}
	if math.IsNaN(c.Health.MaxRepairHealth) {
		warn("health.max-repair-health is not a number, using 1")
		c.Health.MaxRepairHealth = 1
	}
	nonNegative("health.max-repair-health", &c.Health.MaxRepairHealth)
	if c.Health.DecimalSeparator == "" {
		c.Health.DecimalSeparator = "."
	}
	if strings.TrimSpace(c.Health.SpecialRepairItem.Item) == "" {
		c.Health.SpecialRepairItem.Item = "ENDER_EYE"
	}

	whitelist := make([]string, 0, len(c.SpawnWhitelist))
	for _, name := range c.SpawnWhitelist {
		kind, ok := entity.KindByName(name)
		if !ok {
			warn("unknown entity type %q in spawn-whitelist", name)
			continue
		}
		whitelist = append(whitelist, kind.Name)
	}
	c.SpawnWhitelist = whitelist

	if c.Index.File == "" {
		c.Index.File = "spawners.db"
	}
	return warnings
}

// SpawnAllowed checks if spawners of the type passed may spawn creatures. Every type is allowed if the
// whitelist is empty.
func (c Config) SpawnAllowed(spawnerType string) bool {
	return len(c.SpawnWhitelist) == 0 || slices.Contains(c.SpawnWhitelist, spawner.NormaliseType(spawnerType))
}

// BreakTool checks if the tool with the name passed, such as minecraft:diamond_pickaxe, may be used to
// obtain spawners.
func (c Config) BreakTool(name string) bool {
	name = toolName(name)
	return name != "" && slices.Contains(c.Drop.BreakTools, name)
}

// toolName converts an item name to the upper case form used in the break tool list, so that
// minecraft:diamond_pickaxe becomes DIAMOND_PICKAXE.
func toolName(name string) string {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "minecraft:")
	return strings.ToUpper(name)
}
