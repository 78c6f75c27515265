// Package delete removes objects one at a time or in chunked batch requests.
//
// A batch request removes at most MaxBatchSize keys. Larger key sets are split into
// chunks that run through the bounded concurrency runner.
package delete
