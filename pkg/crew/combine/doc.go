// Package combine provides combinators over channels and result sequences.
//
// Key operations:
// - Select: index and value of whichever source produces first
// - Merge: interleave result sequences, failing fast on the first failure
// - MergeChannels: interleave live channels until all are closed and drained
// - Pipeline: one-to-one transform terminating exactly with its source
// - Results: adapt a channel into a result sequence for Merge/Pipeline
// - ToResults/Collect: bridge between slices and sequences
//
// Merge preserves order within each source but gives no cross-source
// ordering.
package combine
