// Package web implements a server-rendered browser front end mirroring the TUI functionality.
//
// Pages are html/template files embedded from templates/ and served through a [server.BasicRouter].
// A single [services.Library] backs every request, so the web app shares the CLI's cached session.
//
// Routes
//
//	GET  /               → login form, or one page of songs with an <audio> player
//	POST /login          → log in with endpoint, username and password
//	POST /logout         → end the session
//	GET  /stream/{id}    → 302 to the NAS stream URL
//	GET  /cover          → 302 to the NAS artwork URL (?name=&artist=)
//	GET  /albums         → one page of albums with covers
//	GET  /albums/songs   → tracklist of one album (?name=&artist=)
//
// Listing routes take ?offset= for paging. An expired session redirects to /?expired=1.
//
// The browser plays audio directly from the NAS, so the session id appears in the redirect target.
// Run the server on a trusted network only.
package web
