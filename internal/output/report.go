package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chrisdamba/prepcast/internal/models"
)

// WriteTrafficReport writes each recommendation as a dated paragraph.
func WriteTrafficReport(w io.Writer, recs []models.TrafficRecommendation) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if _, err := fmt.Fprintf(bw, "%s (%s):\n%s\n\n", models.DateKey(rec.Date), rec.Weekday, rec.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}
