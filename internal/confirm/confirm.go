// Package confirm asks the user to approve destructive or irreversible
// actions. Callers block on Confirm until the user answers or ctx ends.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when no terminal is attached and no
// default answer was configured.
var ErrNotInteractive = errors.New("confirm: input is not a terminal")

// Request describes one confirmation dialog.
type Request struct {
	Title   string
	Message string
	// Accept and Decline label the two choices, e.g. "Save Anyway" and "Cancel".
	Accept  string
	Decline string
}

// Confirmer resolves a Request to true (accept) or false (decline).
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

// Func adapts a function to a Confirmer.
type Func func(ctx context.Context, req Request) (bool, error)

func (f Func) Confirm(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// Static always answers the same way. Used by --yes and in tests.
type Static bool

func (s Static) Confirm(ctx context.Context, _ Request) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

// Prompt asks on a terminal and reads a y/n answer.
type Prompt struct {
	In  io.Reader
	Out io.Writer
	// Interactive overrides terminal detection when non-nil.
	Interactive *bool

	once    sync.Once
	mu      sync.Mutex
	want    chan struct{}
	lines   chan lineResult
	pending bool
}

type lineResult struct {
	line string
	err  error
}

// NewPrompt reads from stdin and writes to stderr.
func NewPrompt() *Prompt {
	return &Prompt{In: os.Stdin, Out: os.Stderr}
}

func (p *Prompt) interactive() bool {
	if p.Interactive != nil {
		return *p.Interactive
	}
	f, ok := p.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Confirm prints the request and waits for an answer. Anything other than
// y or yes declines.
func (p *Prompt) Confirm(ctx context.Context, req Request) (bool, error) {
	if !p.interactive() {
		return false, ErrNotInteractive
	}
	accept, decline := req.Accept, req.Decline
	if accept == "" {
		accept = "Yes"
	}
	if decline == "" {
		decline = "Cancel"
	}
	if req.Title != "" {
		fmt.Fprintln(p.Out, req.Title)
	}
	if req.Message != "" {
		fmt.Fprintln(p.Out, req.Message)
	}
	fmt.Fprintf(p.Out, "%s? [y/N] (N = %s): ", accept, decline)

	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Secret reads a line without echo when attached to a terminal.
func (p *Prompt) Secret(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.Out, label)
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) && !p.readPending() {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(b), nil
	}
	line, err := p.readLine(ctx)
	return strings.TrimRight(line, "\r\n"), err
}

// Line reads one line of plain input.
func (p *Prompt) Line(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.Out, label)
	line, err := p.readLine(ctx)
	return strings.TrimSpace(line), err
}

// start launches the single goroutine that owns the input reader. It reads
// one line per request on want, so nothing else is consumed from In
// between prompts.
func (p *Prompt) start() {
	p.want = make(chan struct{}, 1)
	p.lines = make(chan lineResult, 1)
	go func() {
		r := bufio.NewReader(p.In)
		for range p.want {
			line, err := r.ReadString('\n')
			if errors.Is(err, io.EOF) && line != "" {
				err = nil
			}
			p.lines <- lineResult{line, err}
		}
	}()
}

func (p *Prompt) readPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// readLine waits for the next line. A read abandoned through ctx stays
// outstanding and its line is handed to the next caller.
func (p *Prompt) readLine(ctx context.Context) (string, error) {
	p.once.Do(p.start)
	p.mu.Lock()
	if !p.pending {
		p.pending = true
		p.want <- struct{}{}
	}
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.lines:
		p.mu.Lock()
		p.pending = false
		p.mu.Unlock()
		if r.err != nil {
			return "", fmt.Errorf("read answer: %w", r.err)
		}
		return r.line, nil
	}
}
