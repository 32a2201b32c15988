// Package services implements the Synology Audio Station API client.
//
// # Client
//
// [Client] is the only component that talks to the NAS. It owns the session (endpoint + SID),
// persists it through a [models.SessionStore] and exposes a small operation set:
//   - [Client.SetEndpoint] normalizes the NAS URL to exactly one trailing slash
//   - [Client.Login] and [Client.Logout] manage the AudioStation session
//   - [Client.ListSongs], [Client.ListAlbums] and [Client.ListAlbumSongs] read the library
//   - [Client.StreamURL] and [Client.CoverURL] build URLs for playback and artwork without any I/O
//   - [Client.Resume] restores a cached session on startup
//
// Consumers (CLI, TUI, web handler) depend on the [Library] interface so they can be tested
// against a stub.
//
// # Transport
//
// Every call is a GET against webapi/<cgi path> with the api, version and method query parameters,
// plus _sid once a session exists. The response is a JSON envelope:
//
//	{"success": true, "data": {...}}
//	{"success": false, "error": {"code": 400}}
//
// Each call gets its own request id and timeout (10s unless configured). Calls are never retried.
//
// # Error Handling
//
// Failures are returned as [shared] sentinel kinds so callers can use errors.Is:
//   - [shared.ErrNetwork] : transport failure, timeout (also [shared.ErrTimeout]), non-2xx status, bad JSON
//   - [shared.ErrAuthFailed] : login rejected; [shared.ErrTwoFactorRequired] for codes 403 and 404
//   - [shared.ErrSessionExpired] : the NAS invalidated the session; the client has already dropped it
//   - [shared.ErrMalformedRequest] : a URL was requested without a session
//   - [shared.ErrAPIRequest] : any other non-success envelope
//
// Remote codes are available through [APIError] with errors.As.
package services
