// Package session implements the per-connection log streaming protocol.
//
// A session moves through connected, validating, snapshot_sent and optionally
// tailing before it is closed:
//
//   - the request path is validated against the allowed roots; a rejection is
//     reported to the client as a red error payload and the connection closed
//   - the last lines of the file are sent as one markup message
//   - with tail=1 the file is followed, new content is pushed as it appears
//     and the client is probed with ping messages that it must answer with
//     pong
//
// Every failure ends the session. The file handle and the connection are
// released on every path out of Serve.
package session
