// Package bus owns the session bus connection and the single-instance name
// claim.
//
// InstanceLock requests the helper's well-known name without queueing so a
// second helper learns immediately that one is already running. A detached
// child uses the handoff mode instead: it queues behind its parent and waits
// for NameAcquired once the parent exits.
package bus
