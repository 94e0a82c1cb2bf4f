package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"realtime-canvas/internal/model"
)

// DrawingSummary 드로잉 목록 한 줄
type DrawingSummary struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Strokes   int       `json:"strokes"`
	Points    int       `json:"points"`
	Color     string    `json:"color,omitempty"`
	StrokeID  string    `json:"stroke_id,omitempty"`
}

// Summarize 드로잉 목록 행 생성
func Summarize(drawings []model.Drawing) []DrawingSummary {
	out := make([]DrawingSummary, 0, len(drawings))
	for _, d := range drawings {
		s := DrawingSummary{
			ID:       d.ID,
			Time:     d.Time().UTC(),
			Strokes:  len(d.Data),
			StrokeID: d.StrokeID,
		}
		for _, stroke := range d.Data {
			s.Points += len(stroke)
		}
		if len(d.Data) > 0 {
			s.Color = d.Data[0].Color()
		}
		out = append(out, s)
	}
	return out
}

// writeJSON 들여쓴 JSON 출력
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeSummaries 드로잉 목록을 표로 출력
func writeSummaries(w io.Writer, rows []DrawingSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSTROKES\tPOINTS\tCOLOR")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Time.Format(time.RFC3339), r.Strokes, r.Points, r.Color)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d drawings\n", len(rows))
	return err
}
