package builtin

import (
	"errors"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/permission"
)

type permissionGrantCommand struct {
	srv     serverAdapter
	Grant   cmd.SubCommand `cmd:"grant"`
	Name    string         `cmd:"player"`
	Pattern string         `cmd:"permission"`
}

type permissionRevokeCommand struct {
	srv     serverAdapter
	Revoke  cmd.SubCommand `cmd:"revoke"`
	Name    string         `cmd:"player"`
	Pattern string         `cmd:"permission"`
}

type permissionListCommand struct {
	srv  serverAdapter
	List cmd.SubCommand       `cmd:"list"`
	Name cmd.Optional[string] `cmd:"player"`
}

type permissionReloadCommand struct {
	srv    serverAdapter
	Reload cmd.SubCommand `cmd:"reload"`
}

const permissionPermission = "server.command.permission"

func newPermissionCommand(srv serverAdapter) cmd.Command {
	return cmd.New(
		"permission",
		"Manages player permissions.",
		[]string{"perm"},
		permissionGrantCommand{srv: srv},
		permissionRevokeCommand{srv: srv},
		permissionListCommand{srv: srv},
		permissionReloadCommand{srv: srv},
	)
}

func (c permissionGrantCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	added, err := c.srv.Permissions().Grant(c.Name, c.Pattern)
	if err != nil {
		reportPermissionError(o, err, c.Name, c.Pattern)
		return
	}
	if added {
		o.Printf("Granted %s to %s.", strings.ToLower(c.Pattern), c.Name)
		return
	}
	o.Printf("%s already holds %s.", c.Name, strings.ToLower(c.Pattern))
}

func (c permissionGrantCommand) Allow(src cmd.Source) bool {
	return allowed(c.srv, src, permissionPermission)
}

func (c permissionRevokeCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	removed, err := c.srv.Permissions().Revoke(c.Name, c.Pattern)
	if err != nil {
		reportPermissionError(o, err, c.Name, c.Pattern)
		return
	}
	if removed {
		o.Printf("Revoked %s from %s.", strings.ToLower(c.Pattern), c.Name)
		return
	}
	o.Printf("%s does not hold %s.", c.Name, strings.ToLower(c.Pattern))
}

func (c permissionRevokeCommand) Allow(src cmd.Source) bool {
	return allowed(c.srv, src, permissionPermission)
}

func (c permissionListCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	store := c.srv.Permissions()
	o.Printf("Default permissions: %s", listOrNone(store.Defaults()))
	if name, ok := c.Name.Load(); ok {
		o.Printf("Permissions of %s: %s", name, listOrNone(store.Grants(name)))
	}
}

func (c permissionListCommand) Allow(src cmd.Source) bool {
	return allowed(c.srv, src, permissionPermission)
}

func (c permissionReloadCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if err := c.srv.Permissions().Reload(); err != nil {
		o.Error(err)
		return
	}
	o.Print("Reloaded permissions.")
}

func (c permissionReloadCommand) Allow(src cmd.Source) bool {
	return allowed(c.srv, src, permissionPermission)
}

func reportPermissionError(o *cmd.Output, err error, name, pattern string) {
	switch {
	case errors.Is(err, permission.ErrInvalidName):
		o.Errorf("Invalid player name: %q.", name)
	case errors.Is(err, permission.ErrInvalidPattern):
		o.Errorf("Invalid permission: %q.", pattern)
	default:
		o.Error(err)
	}
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
