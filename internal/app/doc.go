// Package app provides the poll lifecycle layer.
//
// Manager owns the registry of live sessions, arms their deadline timers and
// concludes each poll exactly once. Ledger serializes store writes. Depends on
// domain interfaces, not concrete adapters.
package app
