// Package protocol implements the stdio protocol of the indexing daemon: one
// JSON request per input line, one JSON response per output line, preceded by
// a single READY handshake.
package protocol

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Name identifies the wire protocol in the command schema.
const Name = "jsonl-stdio"

// TerminationToken is the input line that stops the daemon cleanly.
const TerminationToken = "exit"

const readBufferSize = 64 * 1024

// LineReader splits input into lines. Lines have no length limit.
type LineReader struct {
	r *bufio.Reader
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, readBufferSize)}
}

// Next returns the next line without its line ending. A final line without a
// newline is returned as a line; io.EOF is returned once input is exhausted.
func (l *LineReader) Next() (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return trimEOL(line), nil
}

// Line is one read result.
type Line struct {
	Text string
	Err  error
}

// Feed sends lines to out until a read error, including io.EOF, has been
// delivered or done is closed.
func (l *LineReader) Feed(out chan<- Line, done <-chan struct{}) {
	for {
		text, err := l.Next()
		select {
		case out <- Line{Text: text, Err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// IsTermination reports whether line asks the daemon to stop.
func IsTermination(line string) bool {
	return strings.TrimSpace(line) == TerminationToken
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
