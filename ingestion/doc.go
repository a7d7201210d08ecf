// Package ingestion turns an uploaded log file into stored, embedded chunks.
//
// The Pipeline runs each file through a fixed sequence:
//   - Pre-flight size check (oversize input is rejected before any parsing)
//   - Input validation (empty or binary input is rejected)
//   - Format detection and parsing
//   - Smart chunking with a per-file cap
//   - Concurrent embedding with bounded fan-out
//   - Replacement of the file's previous chunks in the vector store
//
// Individual embedding failures drop their chunk and are reported in the
// IngestResult. Only input rejection, total embedding failure and vector
// store errors fail an ingest.
package ingestion
