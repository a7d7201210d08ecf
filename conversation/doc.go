// Package conversation keeps multi-turn question/answer history.
//
// A Store maps conversation ids to their turns. The table is split into a
// power-of-two number of shards selected by an FNV hash of the id, each
// guarded by its own RWMutex, so conversations with different ids rarely
// contend. Callers are expected to serialize operations on a single
// conversation.
//
// Lifecycle per conversation:
//
//	NEW --Ensure--> ACTIVE --Append--> ACTIVE ...
//	ACTIVE --Reset--> (gone; the next Ensure starts NEW)
//
// History is capped; the oldest turns are dropped first. Idle
// conversations can be evicted with Sweep or a background sweeper, and
// every change can be mirrored to a storage.ConversationStore so that
// history survives restarts.
package conversation
