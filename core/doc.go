// Package core holds the storage-agnostic resource contracts: entries,
// transactions, providers, the atomic and domain services built on them,
// error kinds and claim-gated capability links. Store implementations and the
// authentication workflow depend on this package; core depends on neither.
package core
