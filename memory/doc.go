// Package memory defines the two external capabilities the decision-support
// core consumes around its semantic case-study memory.
//
// Architecture:
//   - Store: vector storage backend (chromem-go embedded store in this repo,
//     any ANN-capable store in production)
//   - Embedder: text-to-vector conversion (OpenAI-compatible HTTP gateway,
//     local ONNX model, or the deterministic mock)
//
// The ingestion pipeline writes through Store after embedding chunks; the
// retrieval engine reads through Store after embedding the query narrative.
// Both treat Embedder failures as retryable provider errors.
package memory
