// Package helpers hosts the settings subsystems that follow one xfconf
// channel each.
//
// A helper loads its channel when started, keeps the snapshot current from
// property signals and hands every change to an Applier. Helpers for
// hot-pluggable hardware also re-apply their snapshot when udev reports a new
// device.
package helpers
