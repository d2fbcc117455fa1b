// Package emitter defines the contract with the telemetry pipeline.
// The subsystem hands finished events to an Emitter and returns; delivery,
// ordering and retry belong to the pipeline behind it.
package emitter

type Severity string

const (
	ERROR Severity = "ERROR"
)

type Attrs map[string]interface{}

type Emitter interface {
	// Emit is fire-and-forget; implementations must not block beyond
	// handing the event to their own queue.
	Emit(severity Severity, body string, attrs Attrs)
}

// Merged returns a new attribute set with overlay applied on top of base.
func Merged(base, overlay Attrs) Attrs {
	out := make(Attrs, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
