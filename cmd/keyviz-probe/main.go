// Command keyviz-probe runs the capture pipeline without the webview and
// prints every published event and mode change to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"keyviz/internal/capture"
	"keyviz/internal/chord"
	"keyviz/internal/coords"
	"keyviz/internal/inputhook"
	"keyviz/internal/inputhook/gohook"
)

var newSourceFn = func() inputhook.Source { return gohook.New() }

type options struct {
	policy   coords.Policy
	shortcut chord.Chord
	json     bool
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("keyviz-probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	policy := fs.String("policy", string(coords.PolicyAuto), "coordinate policy: auto, scaling or offset-only")
	shortcut := fs.String("shortcut", chord.Default.String(), "toggle chord, keys joined with '+'")
	asJSON := fs.Bool("json", false, "print events as JSON lines")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	parsedPolicy, err := coords.ParsePolicy(*policy)
	if err != nil {
		return options{}, err
	}
	parsedShortcut, err := chord.Parse(*shortcut)
	if err != nil {
		return options{}, fmt.Errorf("invalid -shortcut: %w", err)
	}
	return options{policy: parsedPolicy, shortcut: parsedShortcut, json: *asJSON}, nil
}

const printerQueueSize = 1024

// printer formats events in call order and hands the lines to a writer
// goroutine. Publish and ListeningToggled run under the capture state lock
// and never wait on the output; lines that do not fit the queue are counted
// and reported on close.
type printer struct {
	mu      sync.Mutex
	closed  bool
	json    bool
	lines   chan []byte
	dropped atomic.Uint64
	done    chan struct{}
}

func newPrinter(out io.Writer, asJSON bool, queueSize int) *printer {
	p := &printer{
		json:  asJSON,
		lines: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
	go p.write(out)
	return p
}

func (p *printer) write(out io.Writer) {
	defer close(p.done)
	for line := range p.lines {
		if _, err := out.Write(line); err != nil {
			p.dropped.Add(1)
		}
	}
}

func (p *printer) send(line []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.lines <- line:
	default:
		p.dropped.Add(1)
	}
}

// Close flushes queued lines and returns the number of lines that were
// dropped.
func (p *printer) Close() uint64 {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.lines)
	}
	p.mu.Unlock()
	<-p.done
	return p.dropped.Load()
}

func (p *printer) Publish(ev capture.InputEvent) {
	if p.json {
		raw, err := json.Marshal(ev)
		if err != nil {
			p.send([]byte(fmt.Sprintf("marshal error: %v\n", err)))
			return
		}
		p.send(append(raw, '\n'))
		return
	}
	p.send([]byte(fmt.Sprintf("%s %+v\n", ev.EventType(), ev)))
}

func (p *printer) ListeningToggled(listening bool) {
	if p.json {
		p.send([]byte(fmt.Sprintf("{\"listening\":%t}\n", listening)))
		return
	}
	p.send([]byte(fmt.Sprintf("listening=%t\n", listening)))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}

	state := capture.NewState()
	if err := state.SetToggleShortcut(opts.shortcut); err != nil {
		return err
	}
	out := newPrinter(stdout, opts.json, printerQueueSize)
	loop := capture.NewLoop(capture.LoopOptions{
		Source:    newSourceFn(),
		State:     state,
		Toggler:   capture.NewToggler(nil, out, out),
		Publisher: out,
		Normalize: opts.policy.Func(),
	})
	runErr := loop.Run(ctx)
	if dropped := out.Close(); dropped > 0 {
		fmt.Fprintf(stderr, "%d output lines dropped\n", dropped)
	}
	return runErr
}

func main() {
	logger := log.New(os.Stderr, "[keyviz-probe] ", log.LstdFlags|log.Lmsgprefix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("capturing global input, press Ctrl+C to stop")
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Printf("capture stopped: %v", err)
		stop()
		os.Exit(1)
	}
}
