// Package engine holds the storage-independent core of the experiment
// service: deterministic variant bucketing and post-assignment results
// aggregation. Nothing here touches the database; callers load entities
// and persist outputs.
package engine
