package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/fyrsmithlabs/contextiq/internal/usercontext"
)

func writeCSV(w io.Writer, b *usercontext.Bundle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, k := range b.Kinds {
		for _, r := range rows(b, k) {
			if err := cw.Write(r.fields()); err != nil {
				return fmt.Errorf("export: write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
