package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// lineReader is the input side of the REPL. *readline.Instance satisfies
// it; tests use a scripted reader.
type lineReader interface {
	Readline() (string, error)
}

// prompter is implemented by readers that draw their own prompt.
type prompter interface {
	SetPrompt(p string)
}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func setupReadline(historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:              "medkeeper> ",
		HistoryFile:         historyFile,
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
}

func filterInput(r rune) (rune, bool) {
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt)
}

// ask prints prompt and reads one trimmed line.
func ask(in lineReader, w io.Writer, prompt string) (string, error) {
	if p, ok := in.(prompter); ok {
		p.SetPrompt(prompt + " ")
	} else {
		fmt.Fprintln(w, prompt)
	}
	line, err := in.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in lineReader, w io.Writer, question string) (bool, error) {
	ans, err := ask(in, w, question+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readSecret reads a token from the terminal without echo. When stdin is
// not a terminal it falls back to a plain line read.
func readSecret(in lineReader, w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ask(in, w, prompt)
	}
	fmt.Fprint(w, prompt+" ")
	b, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
