package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/christian-lee/bililive/internal/resolver"
)

var csvHeader = []string{"index", "protocol", "format", "codec", "url", "expires", "expires_time"}

// CSVWriter writes stream records as CSV rows.
type CSVWriter struct {
	w      *csv.Writer
	header bool
}

// NewCSVWriter returns a writer on out. With bom set, a UTF-8 BOM is written
// first so spreadsheet tools detect the encoding.
func NewCSVWriter(out io.Writer, bom bool) (*CSVWriter, error) {
	if bom {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return nil, fmt.Errorf("write bom: %w", err)
		}
	}
	return &CSVWriter{w: csv.NewWriter(out)}, nil
}

// Write appends records, emitting the header row before the first one.
func (c *CSVWriter) Write(records []resolver.StreamRecord) error {
	if !c.header {
		if err := c.w.Write(csvHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		c.header = true
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Index),
			r.Protocol,
			r.Format,
			r.Codec,
			r.URL,
			"",
			"",
		}
		if r.Expires != nil {
			row[5] = strconv.FormatInt(*r.Expires, 10)
		}
		if r.ExpiresTime != nil {
			row[6] = *r.ExpiresTime
		}
		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}
