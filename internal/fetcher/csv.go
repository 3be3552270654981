package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter rune // default ','
	Comment   rune // comment character (0 = none)
	TrimSpace bool
}

// ReadCSV reads every record from r. Records may have a variable number of fields.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([][]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetcher: csv context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: csv read row")
		}

		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}
		rows = append(rows, record)
	}
}
