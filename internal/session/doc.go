// Package session registers settingsd with the desktop session manager.
//
// The client asks to be restarted immediately should it die, reports whether
// this run resumes a saved session, and turns the manager's Stop and
// EndSession signals into a quit notification. QueryEndSession is always
// answered positively since the helper holds no unsaved state.
package session
