package terminal

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/shlex"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/light-controller/internal/datadog"
)

// Callback receives the full argument vector, args[0] being the command name.
type Callback func(args []string)

type Command struct {
	Name     string
	Help     string
	Usage    string
	Callback Callback
}

// Dispatcher maps command names to callbacks. Callbacks run one at a time and print through
// Printf into the writer of the Execute call that invoked them.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]*Command

	execMu sync.Mutex
	outMu  sync.Mutex
	out    io.Writer
}

func NewDispatcher(defaultOut io.Writer) *Dispatcher {
	d := &Dispatcher{
		commands: make(map[string]*Command),
		out:      defaultOut,
	}
	d.Register("help", "Show registered commands", "", d.help)
	return d
}

// Register adds or replaces a command.
func (d *Dispatcher) Register(name, help, usage string, cb Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands[name] = &Command{Name: name, Help: help, Usage: usage, Callback: cb}
	log.Debug().Str("command", name).Msg("Registered terminal command")
}

func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.commands[name]; !ok {
		return
	}
	delete(d.commands, name)
	log.Debug().Str("command", name).Msg("Unregistered terminal command")
}

func (d *Dispatcher) Lookup(name string) (*Command, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cmd, ok := d.commands[name]
	return cmd, ok
}

// Printf writes one line of command output.
func (d *Dispatcher) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	d.outMu.Lock()
	defer d.outMu.Unlock()
	if d.out != nil {
		io.WriteString(d.out, line)
	}
}

// Execute tokenises line and runs the matching command with its output going to w.
func (d *Dispatcher) Execute(w io.Writer, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("failed to parse command line: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := d.Lookup(args[0])
	if !ok {
		io.WriteString(w, "Invalid command: "+args[0]+"\ntype help to list all available commands\n")
		datadog.Incr("terminal.unknown_command")
		return nil
	}

	d.execMu.Lock()
	defer d.execMu.Unlock()

	prev := d.swapOut(w)
	defer d.swapOut(prev)

	log.Debug().Strs("args", args).Msg("Executing terminal command")
	datadog.Incr("terminal.command", "command:"+cmd.Name)
	cmd.Callback(args)
	return nil
}

func (d *Dispatcher) swapOut(w io.Writer) io.Writer {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	prev := d.out
	d.out = w
	return prev
}

func (d *Dispatcher) help(args []string) {
	d.mu.RLock()
	cmds := make([]*Command, 0, len(d.commands))
	for _, c := range d.commands {
		cmds = append(cmds, c)
	}
	d.mu.RUnlock()

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	for _, c := range cmds {
		if c.Usage != "" {
			d.Printf("%s %s", c.Name, c.Usage)
		} else {
			d.Printf("%s", c.Name)
		}
		d.Printf("  %s", c.Help)
	}
}
