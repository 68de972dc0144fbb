package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/nerdpudding/factorio-llm/pkg/agent"
)

type readResult struct {
	text string
	err  error
}

// lineReader pumps stdin lines through a channel so a blocked terminal
// read cannot hold up cancellation. The pump goroutine may stay parked
// in Read after the context ends; it exits with the process.
type lineReader struct {
	in    *bufio.Reader
	out   io.Writer
	lines chan readResult
	start sync.Once
}

func newLineReader(in io.Reader, out io.Writer) *lineReader {
	return &lineReader{in: bufio.NewReader(in), out: out}
}

// ReadLine prints the prompt and waits for the next line. Input that
// fails sanitization is reported and the prompt repeats. Returns io.EOF
// when the input stream ends and ctx.Err() on cancellation.
func (r *lineReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	r.start.Do(func() {
		r.lines = make(chan readResult)
		go r.pump()
	})

	for {
		fmt.Fprint(r.out, prompt)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-r.lines:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			text, err := agent.SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(r.out, "Error: %v. Please try again.\n", err)
				continue
			}
			return text, nil
		}
	}
}

func (r *lineReader) pump() {
	for {
		text, err := r.in.ReadString('\n')
		if text != "" {
			r.lines <- readResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(r.lines)
				return
			}
			r.lines <- readResult{err: err}
			// Brief pause so a persistently failing reader does not spin.
			time.Sleep(50 * time.Millisecond)
		}
	}
}
