package ports

// TriggerPort sends a marker code to an external device as a fixed-width
// pulse. Emission is best-effort: failures are logged by the emitter and
// never stall or fail a trial. A nil port is a valid configuration (no
// hardware attached).
type TriggerPort interface {
	Pulse(code int) error
}
