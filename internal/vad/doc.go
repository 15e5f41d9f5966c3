// Package vad provides heuristic voice activity detection without a model.
// It classifies frames from three cheap signal features: energy, zero-crossing
// rate, and a spectral-centroid proxy computed without a frequency transform.
package vad
