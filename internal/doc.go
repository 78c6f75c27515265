// Package internal contains the private building blocks of s3kit.
//
//   - runner: bounded concurrency over an ordered list of descriptors
//   - operations: one package per storage operation (list, download, upload, copy, delete)
//   - s3api: the storage client contract and its MinIO adapter
//   - validation: request checks applied before any remote call
//   - metrics: Prometheus collectors for operations, batches and listings
//   - pool: pooled copy buffers for streaming transfers
package internal
