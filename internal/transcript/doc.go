// Package transcript filters raw recognition output and accumulates the
// session transcript. The filter is a set of heuristic guards against
// hallucinated or non-speech engine output; the aggregator owns the
// monotonically growing session text between session resets.
package transcript
