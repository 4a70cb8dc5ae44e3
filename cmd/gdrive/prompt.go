package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// prompter asks yes/no and pick-one questions. When stdin is a file that is
// not a terminal every question is declined so scripted runs never block.
type prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	interactive := true
	if file, ok := in.(*os.File); ok {
		fd := file.Fd()
		interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return &prompter{
		in:          bufio.NewReader(in),
		out:         cmd.ErrOrStderr(),
		interactive: interactive,
	}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks question and reports whether the answer was yes.
func (p *prompter) confirm(question string) (bool, error) {
	if !p.interactive {
		return false, nil
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// choose lists options and returns the zero-based index picked. It reports
// false when the user cancels with an empty answer.
func (p *prompter) choose(title string, options []string) (int, bool) {
	if !p.interactive || len(options) == 0 {
		return 0, false
	}
	fmt.Fprintln(p.out, title)
	for i, option := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, option)
	}
	for {
		fmt.Fprint(p.out, "Selection (empty to cancel): ")
		answer, err := p.readLine()
		if err != nil || answer == "" {
			return 0, false
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, true
		}
		fmt.Fprintf(p.out, "Enter a number between 1 and %d\n", len(options))
	}
}
