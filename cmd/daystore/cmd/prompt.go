package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/term"
)

var errNoInput = errors.New("no input available (pipe it on stdin)")

// prompter reads answers from the terminal, or line by line when stdin is
// piped.
type prompter struct {
	in     *bufio.Reader
	errOut io.Writer
	fd     int
	tty    bool
}

func newPrompter(in io.Reader, errOut io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), errOut: errOut, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// line reads one line of visible input.
func (p *prompter) line(label string) (string, error) {
	if p.tty && label != "" {
		fmt.Fprint(p.errOut, label+": ")
	}
	s, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || s == "") {
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// secret reads a password with echo disabled on a terminal.
func (p *prompter) secret(label string) (string, error) {
	if !p.tty {
		return p.line(label)
	}
	fmt.Fprint(p.errOut, label+": ")
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.errOut)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	s := string(b)
	memguard.WipeBytes(b)
	return s, nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (p *prompter) confirm(question string) (bool, error) {
	fmt.Fprint(p.errOut, question+" [y/N]: ")
	s, err := p.line("")
	if errors.Is(err, errNoInput) {
		fmt.Fprintln(p.errOut)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readPasswordFile reads a secret from path, stripping trailing newlines.
func readPasswordFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	defer memguard.WipeBytes(data)
	s := strings.TrimRight(string(data), "\r\n")
	if s == "" {
		return "", fmt.Errorf("file %s is empty", path)
	}
	return s, nil
}
