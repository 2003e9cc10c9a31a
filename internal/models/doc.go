// Package models defines the song request entity and the persistence interface the request lifecycle is built on.
//
// The package contains three categories of types:
//
// 1. Entities:
//   - [SongRequest] : A song submitted by an attendee, with status and queue priority
//   - [NewSongRequest] : The fields an attendee supplies when submitting
//
// 2. Enumerations:
//   - [Status] : pending, playing, completed, rejected, with [Status.CanTransitionTo] as the state machine
//   - [Direction] : up or down, used to move a pending request within the queue
//
// 3. Store interfaces:
//   - [RequestStore] : create, list, update-status, update-priority and delete against persisted records
//   - [PrioritySwapper] : optional atomic exchange of two priorities
//   - [Pinger] : optional reachability check used by readiness probes
//
// Ordering of pending requests is priority ascending, then most recently created first (see [SortRequests]).
package models
