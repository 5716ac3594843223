package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Prompter asks interactive questions on a terminal. Reads and writes go
// through plain io interfaces so the question flow is testable.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a prompter reading answers from in and printing to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// String asks a free-form question; an empty answer returns def.
func (p *Prompter) String(msg, def string) (string, error) {
	fmt.Fprintf(p.out, "%s [%s]: ", msg, def)
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Int asks for a non-negative integer; an empty answer returns def.
// Invalid input is re-asked.
func (p *Prompter) Int(msg string, def int) (int, error) {
	for {
		fmt.Fprintf(p.out, "%s [%d]: ", msg, def)
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if line == "" {
			return def, nil
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 {
			fmt.Fprintln(p.out, "please enter a non-negative number")
			continue
		}
		return n, nil
	}
}

// Confirm asks a yes/no question; an empty answer returns def.
func (p *Prompter) Confirm(msg string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "%s [%s]: ", msg, hint)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Select asks the user to pick one entry from a numbered list; an empty
// answer returns def.
func (p *Prompter) Select(msg string, choices []string, def string) (string, error) {
	fmt.Fprintln(p.out, msg)
	for i, c := range choices {
		marker := " "
		if c == def {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s %2d) %s\n", marker, i+1, c)
	}
	for {
		fmt.Fprintf(p.out, "choice [%s]: ", def)
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			return def, nil
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(choices) {
			fmt.Fprintf(p.out, "please enter a number between 1 and %d\n", len(choices))
			continue
		}
		return choices[n-1], nil
	}
}

// MultiSelect asks the user to pick entries from a numbered list, as
// comma-separated numbers. "a" selects everything; an empty answer selects
// nothing. Out-of-range and duplicate numbers are ignored.
func (p *Prompter) MultiSelect(msg string, choices []string) ([]string, error) {
	fmt.Fprintln(p.out, msg)
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, c)
	}
	fmt.Fprint(p.out, "selection (e.g. 1,3,5 or 'a' for all): ")
	line, err := p.readLine()
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(line, "a") || strings.EqualFold(line, "all") {
		out := make([]string, len(choices))
		copy(out, choices)
		return out, nil
	}

	seen := make(map[int]bool)
	var out []string
	for _, tok := range strings.Split(line, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > len(choices) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, choices[n-1])
	}
	return out, nil
}

// Infof prints a highlighted status line.
func Infof(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.CyanString(format, args...))
}

// Successf prints a success line.
func Successf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.GreenString(format, args...))
}

// Warnf prints a warning line.
func Warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.YellowString(format, args...))
}
