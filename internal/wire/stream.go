package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

const (
	eventReaderSize   = 64 * 1024
	eventLineMaxBytes = 10 * 1024 * 1024
	eventPreviewBytes = 256
)

// ScanEvents consumes line-delimited events from r until EOF, invoking
// onEvent for each decoded event as it arrives. Lines that are not valid
// JSON, or that exceed the line size limit, are skipped with a warning;
// a worker that interleaves stray prints with events must not kill the
// batch. Only hard read errors are returned.
func ScanEvents(r io.Reader, onEvent func(Event), warnFn func(string)) error {
	if warnFn == nil {
		warnFn = func(string) {}
	}

	reader := bufio.NewReaderSize(r, eventReaderSize)
	line := make([]byte, 0, eventReaderSize)

	for {
		line = line[:0]
		oversized := false

		for {
			chunk, err := reader.ReadSlice('\n')
			if len(chunk) > 0 {
				switch {
				case oversized:
					// Drain the rest of the line.
				case len(line)+len(chunk) > eventLineMaxBytes:
					oversized = true
					if len(line) < eventPreviewBytes {
						line = append(line, chunk[:min(len(chunk), eventPreviewBytes-len(line))]...)
					}
				default:
					line = append(line, chunk...)
				}
			}
			if err == nil {
				break
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) {
				if len(line) == 0 {
					return nil
				}
				// Final line without trailing newline.
				handleLine(line, oversized, onEvent, warnFn)
				return nil
			}
			return err
		}

		handleLine(line, oversized, onEvent, warnFn)
	}
}

func handleLine(line []byte, oversized bool, onEvent func(Event), warnFn func(string)) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return
	}
	if oversized {
		warnFn(fmt.Sprintf("skipping oversized event line (> %d bytes): %s...", eventLineMaxBytes, preview(trimmed)))
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		warnFn(fmt.Sprintf("skipping invalid event line: %s", preview(trimmed)))
		return
	}
	if ev.Type == "" {
		warnFn(fmt.Sprintf("skipping event without type: %s", preview(trimmed)))
		return
	}
	onEvent(ev)
}

func preview(s string) string {
	if len(s) <= eventPreviewBytes {
		return s
	}
	return s[:eventPreviewBytes]
}
