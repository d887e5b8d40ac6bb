// Package access decides which files a client may read.
//
// A request URI such as "/sub/app.log?tail=1" is resolved against a base
// directory, cleaned, and then checked against an immutable set of allowed
// root prefixes. Cleaning always happens before the prefix check, so ".."
// segments cannot be used to step outside the roots.
//
// Rejections are returned as *Error with a Kind (bad request, forbidden, not
// found) whose message is meant to be shown to the client.
package access
