package logging

const (
	// FieldComponent names the subsystem or orchestration step emitting a line.
	FieldComponent = "component"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step a user can take.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldSubsystem identifies a hosted subsystem.
	FieldSubsystem = "subsystem"
	// FieldBusName is the well-known D-Bus name being claimed or released.
	FieldBusName = "bus_name"
	// FieldChannel is an xfconf channel name.
	FieldChannel = "channel"
	// FieldProperty is an xfconf property path.
	FieldProperty = "property"
	// FieldSignal names an OS signal or D-Bus signal member.
	FieldSignal = "signal"
	// FieldSource names what requested shutdown.
	FieldSource = "source"
	FieldPath   = "path"
)
