// internal/shell/shell.go
package shell

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tamzrod/caparoc/internal/device"
)

const prompt = "caparoc> "

// lineReader is the part of *readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// Shell is the interactive prompt over one device.
type Shell struct {
	rl  lineReader
	out io.Writer
	cmd *Commands
}

// New opens a readline prompt on the terminal.
func New(dev *device.Device) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("shell: create readline: %w", err)
	}
	return newShell(rl, rl.Stdout(), dev), nil
}

func newShell(rl lineReader, out io.Writer, dev *device.Device) *Shell {
	return &Shell{rl: rl, out: out, cmd: NewCommands(dev, out)}
}

// Run reads and executes commands until quit or EOF.
// Command errors are printed and do not end the loop.
func (s *Shell) Run() {
	defer s.rl.Close()

	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		switch strings.ToLower(words[0]) {
		case "help", "?":
			s.printHelp()
		case "quit", "exit", "q":
			fmt.Fprintln(s.out, "Exiting...")
			return
		default:
			if err := s.cmd.Exec(words); err != nil {
				fmt.Fprintf(s.out, "Error: %v\n", err)
			}
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
CAPAROC Commands:
  Device:
    status                       - Global status and system values
    info                         - Full device information
    channel <m> <c>              - Channel status flags
    load <m> <c>                 - Channel load current
    on <m> <c> / off <m> <c>     - Switch a channel
    nominal get <m> <c>          - Read nominal current
    nominal set <m> <c> <amps>   - Protected nominal current write
    reset app|errors|counters|quint

  Registers:
    read <addr> [count]          - Read holding registers
    write <addr> <value>         - Write one holding register
    reg list [filter]            - List known registers
    reg info <addr>              - Describe a register
    reg find <pattern>           - Search registers by name

  General:
    help                         - Show this help
    quit                         - Exit

  Addresses and values accept hex (0x...) or decimal.`)
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("status"),
		readline.PcItem("info"),
		readline.PcItem("channel"),
		readline.PcItem("load"),
		readline.PcItem("on"),
		readline.PcItem("off"),
		readline.PcItem("nominal", readline.PcItem("get"), readline.PcItem("set")),
		readline.PcItem("reset",
			readline.PcItem("app"),
			readline.PcItem("errors"),
			readline.PcItem("counters"),
			readline.PcItem("quint"),
		),
		readline.PcItem("read"),
		readline.PcItem("write"),
		readline.PcItem("reg", readline.PcItem("list"), readline.PcItem("info"), readline.PcItem("find")),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}
