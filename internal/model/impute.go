package model

import (
	"math"
	"sort"
)

// Medians returns the median of each column ignoring NaN values.
// A column without any finite value gets 0.
func Medians(x [][]float64, width int) []float64 {
	medians := make([]float64, width)
	column := make([]float64, 0, len(x))
	for j := 0; j < width; j++ {
		column = column[:0]
		for _, row := range x {
			if v := row[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				column = append(column, v)
			}
		}
		if len(column) == 0 {
			continue
		}
		sort.Float64s(column)
		mid := len(column) / 2
		if len(column)%2 == 1 {
			medians[j] = column[mid]
		} else {
			medians[j] = (column[mid-1] + column[mid]) / 2
		}
	}
	return medians
}

// ImputeMedian replaces missing values in place with their column median
// and returns the medians used.
func ImputeMedian(x [][]float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	medians := Medians(x, len(x[0]))
	for _, row := range x {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[j] = medians[j]
			}
		}
	}
	return medians
}
