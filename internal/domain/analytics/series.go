package analytics

import (
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

// HeatmapSeries converts a pivot matrix into one series per row, each with a
// cell for every column including zeros.  Dense output keeps the rendered
// grid rectangular; the zero cells are what give the heatmap its rhythm.
func HeatmapSeries(m *PivotMatrix) []atypes.HeatmapSeries {
	series := make([]atypes.HeatmapSeries, 0, len(m.Rows))
	for _, row := range m.Rows {
		cells := make([]atypes.HeatmapCell, 0, len(m.Columns))
		for _, col := range m.Columns {
			cells = append(cells, atypes.HeatmapCell{X: col, Y: m.Cells[row][col]})
		}
		series = append(series, atypes.HeatmapSeries{ID: row, Data: cells})
	}
	return series
}

// BubbleSeries emits one point per non-zero cell.  Size carries the raw
// count, Frequency the number of distinct active dates for the row, and
// Bucket the intensity tier against the matrix maximum.  Points follow row
// order then column order, so the series is as deterministic as the matrix.
func BubbleSeries(m *PivotMatrix) []atypes.BubblePoint {
	points := make([]atypes.BubblePoint, 0)
	for _, row := range m.Rows {
		frequency := 0
		for _, col := range m.Columns {
			if m.Cells[row][col] > 0 {
				frequency++
			}
		}
		for _, col := range m.Columns {
			count := m.Cells[row][col]
			if count == 0 {
				continue
			}
			points = append(points, atypes.BubblePoint{
				X:         col,
				Y:         row,
				Size:      count,
				Frequency: frequency,
				Bucket:    Classify(count, m.MaxValue),
			})
		}
	}
	return points
}
