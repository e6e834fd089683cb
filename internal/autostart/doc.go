// Package autostart keeps the helper's XDG autostart entry consistent with
// session management.
//
// When the session manager restores the helper it must not also be started
// from the autostart directory, so the Hidden key of the per-user entry
// tracks whether the last run was managed by a session. The entry is edited
// in place so unrelated keys, comments and translations survive.
package autostart
