package ctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// LineSource yields the next line typed by the operator. ok is false once
// input is exhausted.
type LineSource func(ctx context.Context) (line string, ok bool)

// ScanLines reads lines from r on a background goroutine. The returned
// source is safe to share between the dashboard loop and the confirmer,
// since only one of them waits on it at a time.
func ScanLines(r io.Reader) LineSource {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return func(ctx context.Context) (string, bool) {
		select {
		case <-ctx.Done():
			return "", false
		case line, ok := <-ch:
			return line, ok
		}
	}
}

// Prompt is a terminal y/N Confirmer. With Yes set every prompt is accepted
// without reading input.
type Prompt struct {
	Out  io.Writer
	Next LineSource
	Yes  bool
}

func (p *Prompt) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(p.Out, "\n  %s %s\n", colorize(yellow, "CONFIRM"), message)
	if p.Yes {
		fmt.Fprintln(p.Out, "  "+colorize(dim, "accepted (--yes)"))
		return true, nil
	}
	fmt.Fprint(p.Out, "  Continue? [y/N] ")

	line, ok := p.Next(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintln(p.Out)
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
