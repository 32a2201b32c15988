// Package models defines the domain entities and persistence interfaces shared by the synoplay packages.
//
// Library snapshots returned by the Audio Station API:
//   - [Song] : a track with its tag and audio metadata
//   - [Album] : an album as listed by the album browser
//
// Session state:
//   - [Session] : the normalized endpoint and the session id it issued
//   - [SessionStore] : the external cache holding both values between runs
//
// Songs and albums are immutable snapshots; nothing in this module mutates them after decoding.
package models
