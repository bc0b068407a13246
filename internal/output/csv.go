package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/chrisdamba/prepcast/internal/models"
)

// WriteTableCSV writes one row per index entry: the timestamp (hourly tables)
// or date (daily tables) followed by one column per ingredient.
func WriteTableCSV(w io.Writer, table *models.UsageTable) error {
	writer := csv.NewWriter(w)

	first := "timestamp"
	format := time.RFC3339
	if table.Granularity == models.Daily {
		first, format = "date", "2006-01-02"
	}
	header := append([]string{first}, table.Ingredients...)
	if err := writer.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, ts := range table.Index {
		row[0] = ts.Format(format)
		for j, id := range table.Ingredients {
			row[j+1] = strconv.FormatFloat(table.Value(i, id), 'f', 4, 64)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
