// Package domain defines the core poll types and the ports the application depends on.
//
// Poll is the durable record, Tally the derived vote counts. PollStore and
// PollRenderer are implemented by adapters. No implementation code beyond pure
// helpers on the record types.
package domain
