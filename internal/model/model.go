// Package model holds the unsupervised outlier detectors used by the scorer.
package model

import (
	"errors"
	"fmt"
)

// Labels produced by Predict
const (
	Inlier  = 1
	Outlier = -1
)

// Detector learns what normal looks like from a feature matrix
type Detector interface {
	Fit(x [][]float64) (Model, error)
}

// Model labels rows and scores them. Scores below zero are outliers and
// lower is more anomalous.
type Model interface {
	Predict(x [][]float64) (labels []int, scores []float64, err error)
}

func checkMatrix(x [][]float64, width int) error {
	if len(x) == 0 {
		return errors.New("empty feature matrix")
	}
	if width <= 0 {
		width = len(x[0])
		if width == 0 {
			return errors.New("feature matrix has no columns")
		}
	}
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	return nil
}
