// Package lifecycle owns the DJ's view of the song request queue.
//
// A [Manager] holds the authoritative in-memory snapshot of every request and is the only component that
// mutates requests. Two operations change state:
//   - [Manager.SetStatus] moves one request along pending → playing → completed, or pending → rejected
//   - [Manager.Reorder] exchanges the priorities of a pending request and its neighbour in the queue
//
// Every mutation applies optimistically to the local snapshot, writes to the [models.RequestStore], and then
// re-fetches the full record set whether or not the write succeeded. If that fetch fails, the snapshot is
// restored to the last reconciled state and the caller receives [shared.ErrStoreUnavailable].
//
// Views handed out by [Manager.ViewFor] and [Manager.Snapshot] are copies.
//
// A second mutation on a request that already has one in flight fails with [shared.ErrRecordBusy]. A reorder
// holds both of the requests it touches.
package lifecycle
