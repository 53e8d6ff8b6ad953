// ABOUTME: Audit records emitted by the chat command registry.
// ABOUTME: A Recorder persists invocations and ownership changes; the registry works without one.

package command

import "time"

// OverrideKind classifies a registration outcome worth auditing
type OverrideKind string

const (
	OverrideRejected          OverrideKind = "rejected"
	OverrideReplacedChat      OverrideKind = "replaced_chat"
	OverrideReplacedCovalence OverrideKind = "replaced_covalence"
	OverrideReplacedNative    OverrideKind = "replaced_native"
	OverrideRestored          OverrideKind = "restored"
	OverrideRemoved           OverrideKind = "removed"
)

// Invocation describes one dispatched chat command
type Invocation struct {
	Plugin   string
	Command  string
	CallerID string
	Args     []string
	Duration time.Duration
	Fault    string
}

// Override describes a change of ownership for a command name
type Override struct {
	Command  string
	Plugin   string
	Previous string
	Kind     OverrideKind
}

// Recorder persists registry activity
type Recorder interface {
	RecordInvocation(Invocation) error
	RecordOverride(Override) error
}
