// Package repositories implements SQLite persistence for song requests.
//
// [SongRequestRepository] satisfies [models.RequestStore], [models.PrioritySwapper] and [models.Pinger],
// so the lifecycle manager can swap two priorities in one transaction when running against the local database.
//
// Sequence numbers provide stable insertion ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
