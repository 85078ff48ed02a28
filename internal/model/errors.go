package model

import "errors"

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrEmptyTrainingSet     = errors.New("empty training set")
	ErrModelLoad            = errors.New("model load failed")
	ErrUnsupportedAlgorithm = errors.New("unsupported clustering algorithm")
)
