package dump

import (
	"bytes"
	"errors"
	"strings"
)

var errUnterminated = errors.New("unterminated tuple")

// field is one value of a SQL tuple.
type field struct {
	value  string
	quoted bool
}

// valuesStart returns the offset of the first tuple of an INSERT statement.
func valuesStart(line []byte) int {
	i := bytes.Index(line, []byte(" VALUES "))
	if i < 0 {
		return -1
	}
	return i + len(" VALUES ")
}

// tupleScanner walks the "(...),(...);" list of a bulk INSERT line.
type tupleScanner struct {
	buf []byte
	pos int
	sb  strings.Builder
}

// next returns the fields of the next tuple. ok is false once the list ends.
// A structural error means the remainder of the line cannot be trusted.
func (s *tupleScanner) next(dst []field) (fields []field, ok bool, err error) {
	s.skipSpace()
	if s.pos >= len(s.buf) || s.buf[s.pos] == ';' {
		return nil, false, nil
	}
	if s.buf[s.pos] == ',' {
		s.pos++
		s.skipSpace()
	}
	if s.pos >= len(s.buf) || s.buf[s.pos] != '(' {
		return nil, false, errUnterminated
	}
	s.pos++

	fields = dst[:0]
	for {
		s.skipSpace()
		if s.pos >= len(s.buf) {
			return nil, false, errUnterminated
		}

		var f field
		if s.buf[s.pos] == '\'' {
			v, err := s.quoted()
			if err != nil {
				return nil, false, err
			}
			f = field{value: v, quoted: true}
		} else {
			f = field{value: s.bare()}
		}
		fields = append(fields, f)

		s.skipSpace()
		if s.pos >= len(s.buf) {
			return nil, false, errUnterminated
		}
		switch s.buf[s.pos] {
		case ',':
			s.pos++
		case ')':
			s.pos++
			return fields, true, nil
		default:
			return nil, false, errUnterminated
		}
	}
}

func (s *tupleScanner) skipSpace() {
	for s.pos < len(s.buf) {
		switch s.buf[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *tupleScanner) bare() string {
	start := s.pos
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		if c == ',' || c == ')' {
			break
		}
		s.pos++
	}
	return strings.TrimSpace(string(s.buf[start:s.pos]))
}

// quoted reads a single-quoted string starting at the opening quote,
// decoding MySQL backslash escapes and doubled quotes.
func (s *tupleScanner) quoted() (string, error) {
	s.pos++ // opening quote
	s.sb.Reset()
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		switch c {
		case '\\':
			if s.pos+1 >= len(s.buf) {
				return "", errUnterminated
			}
			s.sb.WriteByte(unescape(s.buf[s.pos+1]))
			s.pos += 2
		case '\'':
			if s.pos+1 < len(s.buf) && s.buf[s.pos+1] == '\'' {
				s.sb.WriteByte('\'')
				s.pos += 2
				continue
			}
			s.pos++
			return s.sb.String(), nil
		default:
			s.sb.WriteByte(c)
			s.pos++
		}
	}
	return "", errUnterminated
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case 'Z':
		return 0x1a
	default:
		return c
	}
}
