// Package ir holds the JSON-shaped value model shared by the query encoder,
// the harness and the CLI, together with its RFC 8785 canonical encoding
// and domain-separated fingerprints.
//
// ir imports nothing internal, so every other package can depend on it.
//
// Constraints:
//   - no float values: numbers are int64 or rejected
//   - strings are NFC normalized at the encoding boundary
//   - object key order is UTF-16 code unit order, never map order
package ir
