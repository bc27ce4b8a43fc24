package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FieldSeparator separates the key from the value in an intermediate record.
const FieldSeparator = "\t"

// Reasons a record is malformed.
var (
	ErrFieldCount = errors.New("expected 2 fields")
	ErrValue      = errors.New("value is not an integer")
)

// ParseError describes a malformed intermediate record. Readers of the
// intermediate format skip such records and keep going.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed record %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatRecord renders a record as "<key>\t<value>\n".
func FormatRecord(key string, value int) string {
	return key + FieldSeparator + strconv.Itoa(value) + "\n"
}

// ParseRecord parses one line of the intermediate format. Surrounding
// whitespace is ignored. Lines with the wrong number of fields or a
// non-integer value yield a *ParseError.
func ParseRecord(line string) (Emission, error) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Split(trimmed, FieldSeparator)
	if len(fields) != 2 {
		return Emission{}, &ParseError{Line: line, Err: fmt.Errorf("%w, got %d", ErrFieldCount, len(fields))}
	}
	value, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Emission{}, &ParseError{Line: line, Err: ErrValue}
	}
	return Emission{Key: fields[0], Value: value}, nil
}

// RecordWriter writes records in the intermediate format.
type RecordWriter struct {
	w *bufio.Writer
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: bufio.NewWriter(w)}
}

func (rw *RecordWriter) Write(key string, value int) error {
	_, err := rw.w.WriteString(FormatRecord(key, value))
	return err
}

func (rw *RecordWriter) WriteEmission(e Emission) error {
	return rw.Write(e.Key, e.Value)
}

func (rw *RecordWriter) Flush() error {
	return rw.w.Flush()
}

// ScanRecords reads r line by line and calls fn for every well-formed record.
// Malformed lines are passed to onMalformed (which may be nil) and skipped.
// Lines are not length-limited. An error returned by fn stops the scan.
func ScanRecords(r io.Reader, fn func(Emission) error, onMalformed func(*ParseError)) error {
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadString('\n')
		if line != "" {
			record, err := ParseRecord(line)
			if err != nil {
				var perr *ParseError
				if errors.As(err, &perr) && onMalformed != nil {
					onMalformed(perr)
				}
			} else if err := fn(record); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
