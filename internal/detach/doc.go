// Package detach moves settingsd into the background.
//
// A Go process cannot fork once the runtime has started threads, so the
// helper re-executes itself in a new session with an environment marker
// naming the parent. The parent exits once the child is running; the child
// sees the marker and carries on in the foreground of its own session.
package detach
