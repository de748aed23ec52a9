package detection

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

var csvHeader = []string{"Date", "Label", "Confidence", "News Text", "Explanation"}

// ExportFilename names a history export taken at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("fake-news-history-%s.csv", t.Format("2006-01-02"))
}

// WriteCSV writes detections in history-export format. Confidence is the
// score as a percentage with one decimal.
func WriteCSV(w io.Writer, detections []Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range detections {
		row := []string{
			d.CreatedAt.UTC().Format(time.RFC1123),
			d.Label,
			fmt.Sprintf("%.1f%%", d.Score*100),
			d.NewsText,
			d.Explanation,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
