package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// command is one REPL verb.
type command struct {
	run   func(ctx context.Context, args []string) error
	usage string
	help  string
}

// execIface defines the minimal surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	commands() map[string]command
	// report renders an error returned by a command.
	report(ctx context.Context, err error)
	// afterCommand runs deferred work (bus-triggered flows, queued notices)
	// once the command returned.
	afterCommand(ctx context.Context)
}

// runREPL starts the read-eval-print loop for the medkeeper CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to the command table of a. Unknown commands are reported back
// to the user. The loop exits on EOF, on Ctrl-C, or when the user types
// "exit" or "quit".
//
// Command errors never end the loop; they are rendered via a.report.
func runREPL(ctx context.Context, a execIface, promptFn func() string, in lineReader) {
	for {
		if ctx.Err() != nil {
			return
		}
		if p, ok := in.(prompter); ok {
			p.SetPrompt(promptFn())
		} else {
			printlnFn(promptFn())
		}

		line, err := in.Readline()
		if err != nil {
			if isEOF(err) {
				printlnFn("Bye!")
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name := strings.ToLower(parts[0])

		switch name {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "help", "?":
			printlnFn(helpText(a.commands()))
			continue
		}

		cmd, ok := a.commands()[name]
		if !ok {
			printlnFn("Unknown command:", name, "(type 'help')")
			continue
		}
		if err := cmd.run(ctx, parts[1:]); err != nil {
			a.report(ctx, err)
		}
		a.afterCommand(ctx)
	}
}

func helpText(cmds map[string]command) string {
	names := make([]string, 0, len(cmds))
	for n := range cmds {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, n := range names {
		c := cmds[n]
		usage := n
		if c.usage != "" {
			usage += " " + c.usage
		}
		fmt.Fprintf(&b, "  %-28s %s\n", usage, c.help)
	}
	fmt.Fprintf(&b, "  %-28s %s", "exit | quit", "leave the program")
	return b.String()
}
