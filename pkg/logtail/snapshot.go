package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harun/logstream/pkg/ansihtml"
)

const (
	// DefaultLines is the number of lines kept for a snapshot.
	DefaultLines = 1000

	// MaxLineBytes caps how much of a single line is kept. The rest of an
	// oversized line is discarded up to its terminator.
	MaxLineBytes = 64 * 1024
)

// ReadLast reads r from its current position to EOF and returns at most
// maxLines of the last lines, oldest first. Lines keep their terminator; a
// final line without one is returned as is. Lines longer than MaxLineBytes
// are truncated.
func ReadLast(r io.Reader, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}

	ring := make([]string, maxLines)
	reader := bufio.NewReaderSize(r, MaxLineBytes)
	count := 0
	idx := 0
	for {
		line, err := readLine(reader, MaxLineBytes)
		if line != "" {
			ring[idx] = line
			idx = (idx + 1) % maxLines
			if count < maxLines {
				count++
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// readLine returns the next line with at most limit bytes of content. A
// truncated line keeps its terminator.
func readLine(reader *bufio.Reader, limit int) (string, error) {
	var line []byte
	truncated := false
	for {
		frag, err := reader.ReadSlice('\n')
		if room := limit - len(line); len(frag) > room {
			frag = frag[:room]
			truncated = true
		}
		line = append(line, frag...)

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if truncated && err == nil {
			line = append(line, '\n')
		}
		return string(line), err
	}
}

// Snapshot returns the markup for the last maxLines lines of r. Lines are
// joined with a single space before conversion, which is what existing
// viewers of this stream expect.
func Snapshot(r io.Reader, maxLines int) (string, error) {
	lines, err := ReadLast(r, maxLines)
	if err != nil {
		return "", err
	}
	return toMarkup(strings.Join(lines, " ")), nil
}

// toMarkup converts log text to markup. Invalid UTF-8 is replaced so the
// result is always valid text.
func toMarkup(s string) string {
	return ansihtml.Convert(strings.ToValidUTF8(s, "\uFFFD"))
}
