package checkout

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LineReader hands out lines from one reader to successive prompts. A single
// goroutine owns the reader, so a prompt abandoned on cancellation does not
// swallow the answer meant for the next one.
type LineReader struct {
	lines chan string
	err   error // valid once lines is closed
}

// NewLineReader starts reading r. The goroutine exits at end of input.
func NewLineReader(r io.Reader) *LineReader {
	l := &LineReader{lines: make(chan string)}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			l.lines <- sc.Text()
		}
		l.err = sc.Err()
		close(l.lines)
	}()
	return l
}

// Next returns the next trimmed line, or io.EOF once input is exhausted.
func (l *LineReader) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", l.err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// TerminalWidget stands in for the hosted widget on a terminal. It shows
// the payment order and reads one line: a gateway payment reference, an
// empty line to close the widget, or "fail [reason]" to decline.
type TerminalWidget struct {
	// Lines is shared with the caller's other prompts. When nil, In is
	// wrapped for this call only.
	Lines *LineReader
	In    io.Reader
	Out   io.Writer
	// Format renders minor-unit amounts; defaults to two decimals.
	Format func(minor float64, currency string) string
}

func (w TerminalWidget) Open(ctx context.Context, opts WidgetOptions) (Outcome, error) {
	format := w.Format
	if format == nil {
		format = func(minor float64, cur string) string { return fmt.Sprintf("%s %.2f", cur, minor/100) }
	}
	lines := w.Lines
	if lines == nil {
		lines = NewLineReader(w.In)
	}

	fmt.Fprintf(w.Out, "\n%s\n%s\n", opts.Merchant, opts.Description)
	fmt.Fprintf(w.Out, "  order:  %s\n  amount: %s\n", opts.OrderID, format(opts.Amount, opts.Currency))
	if opts.Prefill.Name != "" {
		fmt.Fprintf(w.Out, "  payer:  %s <%s>\n", opts.Prefill.Name, opts.Prefill.Email)
	}
	fmt.Fprint(w.Out, "Payment reference (blank to cancel): ")

	line, err := lines.Next(ctx)
	switch {
	case errors.Is(err, io.EOF):
		return Dismiss(), nil
	case ctx.Err() != nil:
		return Outcome{}, ctx.Err()
	case err != nil:
		return Outcome{}, fmt.Errorf("checkout: read payment reference: %w", err)
	case line == "":
		return Dismiss(), nil
	case line == "fail" || strings.HasPrefix(line, "fail "):
		return Decline(strings.TrimSpace(strings.TrimPrefix(line, "fail"))), nil
	default:
		return Success(line), nil
	}
}
