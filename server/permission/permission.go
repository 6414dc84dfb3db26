// Package permission implements a small file backed permission store. Permissions are dot separated strings
// such as silktouchplus.drop.ZOMBIE. Grants are patterns in which a `*` segment matches any single segment, or,
// as the last segment, any number of remaining segments.
package permission

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/pelletier/go-toml"
)

var (
	// ErrInvalidName is returned when an empty player name is passed to a store operation.
	ErrInvalidName = errors.New("invalid player name")
	// ErrInvalidPattern is returned when an empty or malformed permission pattern is granted.
	ErrInvalidPattern = errors.New("invalid permission pattern")
)

// Store holds the permission patterns granted to players. Grants are persisted in a TOML file.
type Store struct {
	mu       sync.RWMutex
	defaults []string
	players  map[string][]string
	names    map[string]string
	filePath string
}

type storeFile struct {
	// Default holds patterns granted to every player.
	Default []string `toml:"default"`
	// Players maps player names to the patterns granted to them.
	Players map[string][]string `toml:"players"`
}

// Load loads the store persisted in the file at the path passed. If the file does not exist yet, it is created
// with the default grants passed.
func Load(path string, defaults ...string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("permission file path must not be empty")
	}
	s := &Store{filePath: path}
	if err := s.Reload(defaults...); err != nil {
		return nil, err
	}
	return s, nil
}

// New returns a Store that is not backed by a file, granting the default patterns passed to every player.
func New(defaults ...string) *Store {
	return &Store{defaults: normalisePatterns(defaults), players: map[string][]string{}, names: map[string]string{}}
}

// Reload reads the store from disk again. The defaults passed are only used if the file does not exist.
func (s *Store) Reload(defaults ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filePath == "" {
		return nil
	}

	data := storeFile{}
	contents, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.defaults, s.players, s.names = normalisePatterns(defaults), map[string][]string{}, map[string]string{}
			return s.writeLocked()
		}
		return fmt.Errorf("read permissions: %w", err)
	}
	if len(contents) != 0 {
		if err := toml.Unmarshal(contents, &data); err != nil {
			return fmt.Errorf("decode permissions: %w", err)
		}
	}
	s.defaults = normalisePatterns(data.Default)
	s.players = make(map[string][]string, len(data.Players))
	s.names = make(map[string]string, len(data.Players))
	for name, patterns := range data.Players {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := normaliseName(trimmed)
		s.players[key] = normalisePatterns(append(s.players[key], patterns...))
		s.names[key] = trimmed
	}
	return nil
}

// Allowed reports if the player with the name passed holds the permission passed, either through a grant of
// their own or through a default grant.
func (s *Store) Allowed(name, permission string) bool {
	if s == nil {
		return false
	}
	perm := strings.ToLower(strings.TrimSpace(permission))
	if perm == "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pattern := range s.defaults {
		if Match(pattern, perm) {
			return true
		}
	}
	for _, pattern := range s.players[normaliseName(name)] {
		if Match(pattern, perm) {
			return true
		}
	}
	return false
}

// SourceAllowed reports if the command source passed holds the permission. Players are looked up by name, any
// other source, such as the console, holds every permission.
func (s *Store) SourceAllowed(src cmd.Source, permission string) bool {
	if p, ok := src.(*player.Player); ok {
		return s.Allowed(p.Name(), permission)
	}
	return true
}

// Grant grants the pattern passed to the player. The returned bool indicates if the grant was new.
func (s *Store) Grant(name, pattern string) (bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false, ErrInvalidName
	}
	p, ok := normalisePattern(pattern)
	if !ok {
		return false, ErrInvalidPattern
	}
	key := normaliseName(trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.players[key], p) {
		return false, nil
	}
	previous, hadName := s.names[key]
	s.players[key] = append(s.players[key], p)
	s.names[key] = trimmed
	if err := s.writeLocked(); err != nil {
		s.players[key] = slices.DeleteFunc(s.players[key], func(v string) bool { return v == p })
		if hadName {
			s.names[key] = previous
		} else {
			delete(s.names, key)
		}
		return false, err
	}
	return true, nil
}

// Revoke removes the pattern passed from the grants of the player. The returned bool indicates if the pattern
// was granted before the call.
func (s *Store) Revoke(name, pattern string) (bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false, ErrInvalidName
	}
	p, ok := normalisePattern(pattern)
	if !ok {
		return false, ErrInvalidPattern
	}
	key := normaliseName(trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	original := s.players[key]
	if !slices.Contains(original, p) {
		return false, nil
	}
	s.players[key] = slices.DeleteFunc(slices.Clone(original), func(v string) bool { return v == p })
	if err := s.writeLocked(); err != nil {
		s.players[key] = original
		return false, err
	}
	return true, nil
}

// Grants returns the patterns granted to the player passed, excluding default grants.
func (s *Store) Grants(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.players[normaliseName(name)])
}

// Defaults returns the patterns granted to every player.
func (s *Store) Defaults() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.defaults)
}

// Match reports if the permission pattern passed matches the permission. Matching is case-insensitive.
func Match(pattern, permission string) bool {
	ps := strings.Split(strings.ToLower(pattern), ".")
	qs := strings.Split(strings.ToLower(permission), ".")
	for i, seg := range ps {
		if seg == "*" && i == len(ps)-1 {
			return len(qs) > i
		}
		if i >= len(qs) {
			return false
		}
		if seg != "*" && seg != qs[i] {
			return false
		}
	}
	return len(ps) == len(qs)
}

func (s *Store) writeLocked() error {
	if s.filePath == "" {
		return nil
	}
	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return fmt.Errorf("create permission directory: %w", err)
		}
	}
	data := storeFile{Default: s.defaults, Players: make(map[string][]string, len(s.players))}
	if data.Default == nil {
		data.Default = []string{}
	}
	for key, patterns := range s.players {
		if len(patterns) == 0 {
			continue
		}
		name := s.names[key]
		if name == "" {
			name = key
		}
		data.Players[name] = slices.Sorted(slices.Values(patterns))
	}
	encoded, err := toml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}
	if err := os.WriteFile(s.filePath, encoded, 0644); err != nil {
		return fmt.Errorf("write permissions: %w", err)
	}
	return nil
}

func normalisePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if p, ok := normalisePattern(pattern); ok && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func normalisePattern(pattern string) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "" {
		return "", false
	}
	for _, seg := range strings.Split(p, ".") {
		if seg == "" || (strings.Contains(seg, "*") && seg != "*") {
			return "", false
		}
	}
	return p, true
}

func normaliseName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
