package prompts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from one input stream. Both prompts share a buffered
// reader so piped input with several lines is not lost between reads.
type Prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

// NewPrompter creates a prompter reading from in and writing prompts to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:     in,
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// PromptUsername prompts for username (visible input)
func (p *Prompter) PromptUsername() (string, error) {
	fmt.Fprint(p.out, "Enter username: ")
	username, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	return username, nil
}

// PromptPassword prompts for password (hidden input when stdin is a terminal)
func (p *Prompter) PromptPassword() (string, error) {
	fmt.Fprint(p.out, "Enter password: ")

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out) // Print newline after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(password)), nil
	}

	password, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// readLine returns the next line with surrounding whitespace removed.
// A final line without a newline is accepted.
func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
