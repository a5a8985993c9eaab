// Package rpcselect implements the RPC endpoint selection and failover
// engine: a small state machine, a concurrency-safe selection policy,
// exponential backoff, and a background health loop that together decide
// which JSON-RPC endpoint a caller should use for a given chain.
//
// Persistence and caching are reached through the Store and Cache
// interfaces defined in this package; the wire format used to probe an
// endpoint's liveness is abstracted behind Prober. Concrete
// implementations of all three live in sibling packages
// (infrastructure/rpcselect/store, infrastructure/rpcselect/cache,
// infrastructure/rpcselect/prober) so that this package stays free of
// database drivers, Redis clients, and HTTP wire formats.
//
// Endpoint state machine:
//
//	Active  --success-------------------------------------> Active  (reset counters)
//	Active  --failure, count < max-----------------------> Active  (increment counter)
//	Active  --failure, count >= max-----------------------> Error   (increment counter, set state)
//	Error   --health probe succeeds, or caller reports success --> Active (reset counters, set state)
//	Error   --health probe fails, or backoff not elapsed--> Error   (no state change)
//	*       --operator action------------------------------> Disabled (never written by this package)
//
// Selection picks, among the eligible candidates for a chain, the
// endpoint with the lexicographically smallest (priority,
// consecutive_errors) pair — see Policy in policy.go.
package rpcselect
