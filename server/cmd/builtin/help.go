package builtin

import (
	"slices"
	"strconv"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
)

// helpPageSize is the number of commands listed on one page of /help.
const helpPageSize = 7

type helpCommand struct {
	Query cmd.Optional[string] `cmd:"query"`
}

func newHelpCommand() cmd.Command {
	return cmd.New("help", "Lists the commands you may run, or the usage of one of them.", []string{"?"}, helpCommand{})
}

func (h helpCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	n := 1
	if q, ok := h.Query.Load(); ok {
		page, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil {
			describeCommand(src, o, q)
			return
		}
		n = page
	}

	commands := runnableCommands(src)
	if len(commands) == 0 {
		o.Print("You cannot run any commands.")
		return
	}
	shown, n, pages := helpPage(commands, n, helpPageSize)
	o.Printf("Commands, page %d of %d:", n, pages)
	for _, c := range shown {
		line := "/" + c.Name()
		if aliases := c.Aliases(); len(aliases) > 0 {
			line += " (" + strings.Join(aliases, ", ") + ")"
		}
		if desc := c.Description(); desc != "" {
			line += ": " + desc
		}
		o.Print(line)
	}
	if n < pages {
		o.Printf("Run /help %d for the next page.", n+1)
	}
}

// describeCommand prints the description and usage of the command with the name or alias passed.
func describeCommand(src cmd.Source, o *cmd.Output, name string) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	c, ok := cmd.ByAlias(name)
	if !ok || len(c.Runnables(src)) == 0 {
		o.Errorf("No command /%s is available to you.", name)
		return
	}
	if desc := c.Description(); desc != "" {
		o.Printf("/%s: %s", c.Name(), desc)
	}
	o.Print("Usage:")
	for _, line := range strings.Split(c.Usage(), "\n") {
		o.Print("  " + line)
	}
}

// runnableCommands returns every registered command src may run, sorted by name. Aliases are not listed
// separately.
func runnableCommands(src cmd.Source) []cmd.Command {
	var out []cmd.Command
	for alias, c := range cmd.Commands() {
		if c.Name() == alias && len(c.Runnables(src)) > 0 {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b cmd.Command) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// helpPage returns page n of items split into pages of size entries. n is limited to the pages that exist and
// returned together with the page count.
func helpPage[T any](items []T, n, size int) ([]T, int, int) {
	pages := max((len(items)+size-1)/size, 1)
	n = min(max(n, 1), pages)
	start := (n - 1) * size
	return items[start:min(start+size, len(items))], n, pages
}
