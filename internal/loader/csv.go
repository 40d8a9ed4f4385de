package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
)

type csvLoader struct {
	format string
	comma  rune
}

func (l csvLoader) Format() string { return l.format }

func (l csvLoader) Extensions() []string { return []string{"." + l.format} }

func (l csvLoader) Load(data []byte, _ Options) (*dataset.Dataset, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = l.comma
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", len(records)+1, ncol, len(rec))
		}
		records = append(records, rec)
	}
	return fromRecords(header, records), nil
}
