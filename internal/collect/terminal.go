package collect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/ishangarg01/cmd-gen/internal/tui"
)

// NewTerminalSource returns the InputSource appropriate for the current
// terminal: styled interactive forms on a TTY, a plain line reader when
// stdin is piped or styling is disabled.
func NewTerminalSource() InputSource {
	if tui.IsPlainMode() || !term.IsTerminal(int(os.Stdin.Fd())) {
		return NewReaderSource(os.Stdin, os.Stdout)
	}
	return &FormSource{}
}

// FormSource prompts with interactive huh forms.
type FormSource struct{}

func (s *FormSource) Ask(ctx context.Context, p Prompt) (string, error) {
	var value string
	input := huh.NewInput().
		Title(p.Name).
		Value(&value)
	if p.Default != "" {
		input = input.
			Placeholder(p.Default).
			Description("Enter accepts the default: " + p.Default)
	}
	form := huh.NewForm(huh.NewGroup(input)).WithTheme(tui.FormTheme())
	if err := form.RunWithContext(ctx); err != nil {
		return "", mapFormErr(ctx, err)
	}
	return value, nil
}

func (s *FormSource) Confirm(ctx context.Context, question string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Proceed").
			Negative("Abort").
			Value(&ok),
	)).WithTheme(tui.FormTheme())
	if err := form.RunWithContext(ctx); err != nil {
		return false, mapFormErr(ctx, err)
	}
	return ok, nil
}

func mapFormErr(ctx context.Context, err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ReaderSource prompts over plain reader/writer pairs. It backs piped
// stdin and tests; prompts are written in the same bracketed-default shape
// the rest of the CLI uses.
type ReaderSource struct {
	r *bufio.Reader
	w io.Writer
}

func NewReaderSource(r io.Reader, w io.Writer) *ReaderSource {
	return &ReaderSource{r: bufio.NewReader(r), w: w}
}

// ReadLine reads one line from the underlying reader without printing a
// prompt. A piped command line and the prompt answers that follow it must
// go through the same buffered reader, or the first read swallows the
// buffered answers along with the command.
func (s *ReaderSource) ReadLine(ctx context.Context) (string, error) {
	return s.readLine(ctx)
}

func (s *ReaderSource) Ask(ctx context.Context, p Prompt) (string, error) {
	if p.Default != "" {
		fmt.Fprintf(s.w, "%s [%s]: ", p.Name, p.Default)
	} else {
		fmt.Fprintf(s.w, "%s: ", p.Name)
	}
	return s.readLine(ctx)
}

func (s *ReaderSource) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(s.w, "%s [y/N]: ", question)
	line, err := s.readLine(ctx)
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// readLine reads one line, honoring context cancellation. The read itself
// runs in a goroutine since bufio offers no cancellable read; on
// cancellation the goroutine is abandoned to finish with the process.
func (s *ReaderSource) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			ch <- result{err: err}
			return
		}
		ch <- result{line: strings.TrimRight(line, "\r\n")}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				return "", ErrAborted
			}
			return "", res.err
		}
		return res.line, nil
	}
}
