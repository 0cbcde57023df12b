package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"salesdash/ml"
)

var ErrEmptyUpload = errors.New("upload has no header row")

// Upload is a parsed delimited file. Records keep every column, including
// ones the model never sees, so results can be shown next to the input.
type Upload struct {
	Columns []string
	Records []ml.Record
}

func (u Upload) Len() int { return len(u.Records) }

const peekSize = 64 << 10

var candidateDelimiters = []rune{',', ';', '\t'}

// ParseUpload reads a delimited file with a header row. The delimiter is
// the candidate appearing most often in the header; comma wins ties.
func ParseUpload(r io.Reader) (Upload, error) {
	br := bufio.NewReaderSize(r, peekSize)
	header, err := peekLine(br)
	if err != nil {
		return Upload{}, err
	}
	header = strings.TrimPrefix(header, "\ufeff")
	if strings.TrimSpace(header) == "" {
		return Upload{}, ErrEmptyUpload
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(header)
	reader.TrimLeadingSpace = true

	columns, err := reader.Read()
	if err == io.EOF {
		return Upload{}, ErrEmptyUpload
	}
	if err != nil {
		return Upload{}, fmt.Errorf("read header: %w", err)
	}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if c == "" {
			return Upload{}, fmt.Errorf("header column %d is blank", i+1)
		}
		if seen[c] {
			return Upload{}, fmt.Errorf("duplicate header column %q", c)
		}
		seen[c] = true
		columns[i] = c
	}
	reader.FieldsPerRecord = len(columns)

	upload := Upload{Columns: columns}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Upload{}, fmt.Errorf("read row %d: %w", len(upload.Records), err)
		}
		rec := make(ml.Record, len(columns))
		for i, c := range columns {
			rec[c] = fields[i]
		}
		upload.Records = append(upload.Records, rec)
	}
	return upload, nil
}

// peekLine returns the first line, or the first peekSize bytes of it,
// without consuming anything.
func peekLine(br *bufio.Reader) (string, error) {
	buf, err := br.Peek(peekSize)
	if len(buf) == 0 {
		if err == nil || err == io.EOF {
			return "", ErrEmptyUpload
		}
		return "", err
	}
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

func sniffDelimiter(header string) rune {
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// WriteResults writes the upload columns followed by resultColumn holding
// values, one row per record.
func WriteResults(w io.Writer, u Upload, resultColumn string, values []float64) error {
	if len(values) != len(u.Records) {
		return fmt.Errorf("%d results for %d rows", len(values), len(u.Records))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), u.Columns...), resultColumn)); err != nil {
		return err
	}
	for i, rec := range u.Records {
		row := make([]string, 0, len(u.Columns)+1)
		for _, c := range u.Columns {
			row = append(row, rec[c])
		}
		row = append(row, fmt.Sprintf("%g", values[i]))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
