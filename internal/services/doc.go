// Package services implements [models.RequestStore] against a hosted PostgREST-style table.
//
// # Hosted Store
//
// [HostedStore] talks to "<url>/rest/v1/<table>" using the PostgREST query dialect:
//   - list: GET ?select=*&order=priority.asc,created_at.desc
//   - create: POST with "Prefer: return=representation"
//   - update: PATCH ?id=eq.<id> returning the updated rows
//   - delete: DELETE ?id=eq.<id> returning the removed rows
//
// An update or delete that returns no rows means the id does not exist and surfaces as [shared.ErrNotFound].
//
// # Authentication
//
// The API key is sent as the "apikey" header and as a bearer token through a static [oauth2.TokenSource].
//
// # Retries
//
// Transport errors, 429 and 5xx responses are retried with exponential backoff up to the configured limit.
// Other 4xx responses are permanent. Retried writes are at-least-once: a PATCH that reached the server before
// the connection dropped may be applied twice, which is harmless because every write sets an absolute value.
package services
