package checkout

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConsoleWidget collects a payment on a terminal: it prints the order and
// waits for "<payment_id> <signature>" or "cancel" on one line.
//
// A single reader goroutine owns the input; Open and Confirm consume its
// lines, so a widget closed on timeout does not swallow the next answer.
type ConsoleWidget struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan string
}

func NewConsoleWidget(in io.Reader, out io.Writer) *ConsoleWidget {
	return &ConsoleWidget{in: bufio.NewReader(in), out: out, lines: make(chan string)}
}

func (w *ConsoleWidget) Load(context.Context) error {
	return nil
}

// readLines runs until the input ends, then closes lines.
func (w *ConsoleWidget) readLines() {
	defer close(w.lines)
	for {
		line, err := w.in.ReadString('\n')
		if line != "" || err == nil {
			w.lines <- line
		}
		if err != nil {
			return
		}
	}
}

func (w *ConsoleWidget) nextLines() <-chan string {
	w.once.Do(func() { go w.readLines() })
	return w.lines
}

func (w *ConsoleWidget) Open(opts Options, h Handlers) (Handle, error) {
	if opts.OrderID == "" {
		return nil, errors.New("open payment widget: order id is required")
	}
	fmt.Fprintf(w.out, "%s - %s\n", opts.Name, opts.Description)
	fmt.Fprintf(w.out, "order %s: %d.%02d %s\n", opts.OrderID, opts.Amount/100, opts.Amount%100, opts.Currency)
	fmt.Fprintln(w.out, `enter "<payment_id> <signature>" to pay, or "cancel":`)

	handle := &consoleHandle{done: make(chan struct{})}
	lines := w.nextLines()
	go func() {
		select {
		case <-handle.done:
			return
		default:
		}

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				h.OnDismiss()
				return
			}
			line = l
		case <-handle.done:
			return
		}

		fields := strings.Fields(line)
		switch {
		case len(fields) == 0, len(fields) == 1 && strings.EqualFold(fields[0], "cancel"):
			h.OnDismiss()
		default:
			resp := SuccessResponse{OrderID: opts.OrderID, PaymentID: fields[0]}
			if len(fields) > 1 {
				resp.Signature = fields[1]
			}
			h.OnSuccess(resp)
		}
	}()
	return handle, nil
}

type consoleHandle struct {
	once sync.Once
	done chan struct{}
}

func (c *consoleHandle) Close() {
	c.once.Do(func() { close(c.done) })
}

// Confirm asks a yes/no question on the same terminal.
func (w *ConsoleWidget) Confirm(prompt string) bool {
	fmt.Fprintf(w.out, "%s [y/N]: ", prompt)
	line, ok := <-w.nextLines()
	if !ok {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
