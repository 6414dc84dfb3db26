package builtin

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/dm-vev/silkspawner/server"
	"github.com/dm-vev/silkspawner/server/permission"
	"github.com/go-gl/mathgl/mgl64"
)

type fakeServer struct {
	perms   *permission.Store
	enabled []string
	closed  bool
}

func (f *fakeServer) Close() error                    { f.closed = true; return nil }
func (f *fakeServer) Permissions() *permission.Store { return f.perms }
func (f *fakeServer) PluginsEnabled() bool           { return true }
func (f *fakeServer) AvailablePlugins() []string     { return []string{"alpha", "silktouchplus"} }

func (f *fakeServer) Plugins() []server.PluginInfo {
	infos := make([]server.PluginInfo, 0, len(f.enabled))
	for _, name := range f.enabled {
		infos = append(infos, server.PluginInfo{Name: name, Version: "2.0", Source: name})
	}
	return infos
}

func (f *fakeServer) EnablePlugin(name string) (server.PluginInfo, error) {
	f.enabled = append(f.enabled, name)
	return server.PluginInfo{Name: name, Source: name}, nil
}

func (f *fakeServer) DisablePlugin(name string) (server.PluginInfo, error) {
	return server.PluginInfo{}, server.ErrPluginNotFound
}

func (f *fakeServer) ReloadPlugin(name string) (server.PluginInfo, error) {
	return server.PluginInfo{Name: name, Source: name}, nil
}

type recordingSource struct {
	out []string
}

func (*recordingSource) Position() mgl64.Vec3 { return mgl64.Vec3{} }

func (s *recordingSource) SendCommandOutput(o *cmd.Output) {
	for _, m := range o.Messages() {
		s.out = append(s.out, fmt.Sprint(m))
	}
	for _, err := range o.Errors() {
		s.out = append(s.out, "error: "+err.Error())
	}
}

func (s *recordingSource) contains(substr string) bool {
	for _, line := range s.out {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestPermissionCommand(t *testing.T) {
	srv := &fakeServer{perms: permission.New("silktouchplus.hologram")}
	command := newPermissionCommand(srv)

	src := &recordingSource{}
	command.Execute("grant Steve silktouchplus.drop.*", src, nil)
	if !srv.perms.Allowed("Steve", "silktouchplus.drop.ZOMBIE") {
		t.Fatalf("expected grant to be stored, output: %v", src.out)
	}
	if !src.contains("Granted silktouchplus.drop.* to Steve.") {
		t.Fatalf("unexpected grant output: %v", src.out)
	}

	src = &recordingSource{}
	command.Execute("grant Steve bad*", src, nil)
	if !src.contains("Invalid permission") {
		t.Fatalf("expected invalid pattern error, got %v", src.out)
	}

	src = &recordingSource{}
	command.Execute("list Steve", src, nil)
	if !src.contains("Default permissions: silktouchplus.hologram") || !src.contains("Permissions of Steve: silktouchplus.drop.*") {
		t.Fatalf("unexpected list output: %v", src.out)
	}

	src = &recordingSource{}
	command.Execute("revoke Steve silktouchplus.drop.*", src, nil)
	if srv.perms.Allowed("Steve", "silktouchplus.drop.ZOMBIE") {
		t.Fatalf("expected grant to be revoked, output: %v", src.out)
	}
}

func TestPluginListCommand(t *testing.T) {
	srv := &fakeServer{perms: permission.New(), enabled: []string{"silktouchplus"}}
	src := &recordingSource{}
	newPluginCommand(srv).Execute("list", src, nil)
	if !src.contains("silktouchplus v2.0 (enabled)") || !src.contains("alpha (disabled)") {
		t.Fatalf("unexpected plugin list output: %v", src.out)
	}

	src = &recordingSource{}
	newPluginCommand(srv).Execute("disable missing", src, nil)
	if !src.contains("error: plugin not found") {
		t.Fatalf("expected disable error, got %v", src.out)
	}
}

func TestParseGameMode(t *testing.T) {
	for _, v := range []string{"0", "s", "Survival", "c", "creative", "2", "sp", "Spectator"} {
		if _, _, ok := parseGameMode(v); !ok {
			t.Errorf("expected %q to be a valid game mode", v)
		}
	}
	if _, _, ok := parseGameMode("hardcore"); ok {
		t.Errorf("expected hardcore to be rejected")
	}
}

func TestHelpPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	cases := []struct {
		n, wantN int
		want     []int
	}{
		{1, 1, []int{1, 2, 3}},
		{3, 3, []int{7, 8}},
		{9, 3, []int{7, 8}},
		{-2, 1, []int{1, 2, 3}},
	}
	for _, c := range cases {
		got, n, pages := helpPage(items, c.n, 3)
		if !slices.Equal(got, c.want) || n != c.wantN || pages != 3 {
			t.Errorf("helpPage(%d) = %v, %d of %d, want %v, %d of 3", c.n, got, n, pages, c.want, c.wantN)
		}
	}
	if got, n, pages := helpPage([]int{}, 1, 3); len(got) != 0 || n != 1 || pages != 1 {
		t.Errorf("helpPage() of nothing = %v, %d of %d", got, n, pages)
	}
}

func TestHelpCommand(t *testing.T) {
	Register(&fakeServer{perms: permission.New()})
	help, _ := cmd.ByAlias("help")

	src := &recordingSource{}
	help.Execute("", src, nil)
	if !src.contains("Commands, page 1 of") || !src.contains("/gamemode (gm): ") {
		t.Fatalf("unexpected help output: %v", src.out)
	}

	src = &recordingSource{}
	help.Execute("/GM", src, nil)
	if !src.contains("/gamemode: Changes a player's game mode.") || !src.contains("Usage:") {
		t.Fatalf("unexpected command help: %v", src.out)
	}

	src = &recordingSource{}
	help.Execute("nothing", src, nil)
	if !src.contains("error: No command /nothing is available to you.") {
		t.Fatalf("expected unknown command error, got %v", src.out)
	}
}

func TestNameList(t *testing.T) {
	if got := nameList(nil); got != "" {
		t.Errorf("nameList(nil) = %q", got)
	}
	if got := targetPlayers([]cmd.Target{nil}); len(got) != 0 {
		t.Errorf("targetPlayers() kept a non-player target: %v", got)
	}
}
