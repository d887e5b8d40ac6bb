package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and writing prompts to
// out.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run walks through the settings an operator usually changes, starting from
// base. An empty answer keeps the current value.
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := *base
	cfg.Tail.AllowedRoots = append([]string(nil), base.Tail.AllowedRoots...)
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== logstream configuration ===")
	fmt.Fprintln(w.out)

	host, err := w.ask("Listen host", cfg.Server.Host)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateHost(host); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Server.Host)
	} else {
		cfg.Server.Host = host
	}

	for {
		answer, err := w.ask("Listen port", strconv.Itoa(cfg.Server.Port))
		if err != nil {
			return nil, err
		}
		port, convErr := strconv.Atoi(answer)
		if convErr == nil {
			convErr = validator.ValidatePort(port)
		}
		if convErr != nil {
			fmt.Fprintf(w.out, "Error: %v\n", convErr)
			continue
		}
		cfg.Server.Port = port
		break
	}

	for {
		answer, err := w.ask("Allowed log directories (comma separated)", strings.Join(cfg.Tail.AllowedRoots, ","))
		if err != nil {
			return nil, err
		}
		roots := splitList(answer)
		if err := validator.ValidateRoots(roots); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Tail.AllowedRoots = roots
		break
	}

	for {
		answer, err := w.ask("Snapshot lines", strconv.Itoa(cfg.Tail.NumLines))
		if err != nil {
			return nil, err
		}
		lines, convErr := strconv.Atoi(answer)
		if convErr == nil {
			convErr = validator.ValidatePositive("snapshot lines", lines)
		}
		if convErr != nil {
			fmt.Fprintf(w.out, "Error: %v\n", convErr)
			continue
		}
		cfg.Tail.NumLines = lines
		break
	}

	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return &cfg, nil
}

func (w *Wizard) ask(prompt, current string) (string, error) {
	fmt.Fprintf(w.out, "%s [%s]: ", prompt, current)
	answer, err := w.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
