package stdio

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// errLineTooLong reports a line that exceeded the configured maximum. The
// offending line has been consumed through its terminator.
var errLineTooLong = errors.New("line exceeds maximum length")

// lineReader splits input into newline-terminated lines, reusing one buffer.
type lineReader struct {
	br  *bufio.Reader
	max int
	buf []byte
}

func newLineReader(r io.Reader, max int) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 64*1024), max: max}
}

// next returns the next line without its "\n" or "\r\n" terminator. The slice
// is only valid until the following call. A final unterminated line is
// returned with a nil error; io.EOF follows on the next call.
func (l *lineReader) next() ([]byte, error) {
	l.buf = l.buf[:0]
	tooLong := false
	for {
		chunk, err := l.br.ReadSlice('\n')
		if !tooLong {
			l.buf = append(l.buf, chunk...)
			// The terminator, "\r\n" included, does not count towards max.
			if len(trimEOL(l.buf)) > l.max {
				tooLong = true
				l.buf = l.buf[:0]
			}
		}

		switch {
		case err == nil:
			if tooLong {
				return nil, errLineTooLong
			}
			return trimEOL(l.buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return nil, errLineTooLong
			}
			if len(l.buf) > 0 {
				return trimEOL(l.buf), nil
			}
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
