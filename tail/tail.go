// Package tail incrementally reads growing line-delimited files.
//
// A Tailer is a polling cursor over an append-only file: each Poll returns
// the complete lines appended since the last call and buffers any partial
// trailing line until its newline arrives. Polls are synchronous and
// bounded (only currently-available bytes are read, never waited for), so a
// supervision loop can call Poll at a fixed interval indefinitely.
package tail

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tailer reads newly appended complete lines from a file. One Tailer owns
// its cursor exclusively; never share a Tailer (or a file offset) across
// concurrent readers of the same file.
type Tailer struct {
	path    string
	offset  int64
	partial strings.Builder
}

// New creates a Tailer positioned at the start of the file. The file does
// not need to exist yet; polls before it appears return no lines.
func New(path string) *Tailer {
	return &Tailer{path: path}
}

// NewAt creates a Tailer positioned at a byte offset. Use this to resume
// tailing, or to skip stale content by starting at the current end of file.
func NewAt(path string, offset int64) *Tailer {
	return &Tailer{path: path, offset: offset}
}

// NewAtEnd creates a Tailer positioned at the current end of the file, so
// only content appended after this call is returned. A missing file is
// treated as empty.
func NewAtEnd(path string) (*Tailer, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Tailer{path: path}, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return &Tailer{path: path, offset: info.Size()}, nil
}

// Offset returns the current byte offset of the cursor.
func (t *Tailer) Offset() int64 {
	return t.offset
}

// Poll returns the complete lines appended since the last call, without
// their trailing newlines. A file that does not exist or has not grown
// yields no lines and no error. A partial trailing line is buffered and
// returned by the poll that sees its newline.
func (t *Tailer) Poll() ([]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	if info.Size() <= t.offset {
		return nil, nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek %s: %w", t.path, err)
	}

	// Read only the bytes known to be available at stat time, so the poll
	// stays bounded even while the writer keeps appending.
	buf := make([]byte, info.Size()-t.offset)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read %s: %w", t.path, err)
	}
	buf = buf[:n]
	t.offset += int64(n)

	var lines []string
	start := 0
	for i, b := range buf {
		if b != '\n' {
			continue
		}
		t.partial.Write(buf[start:i])
		lines = append(lines, t.partial.String())
		t.partial.Reset()
		start = i + 1
	}
	if start < len(buf) {
		t.partial.Write(buf[start:])
	}

	return lines, nil
}
