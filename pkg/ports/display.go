package ports

// Display renders the fixed visual vocabulary of the experiment. Rendering
// primitives themselves (windows, drawing) are out of scope; implementations
// are thin wrappers around whatever surface the operator runs on.
type Display interface {
	// Fixation shows the central fixation cross.
	Fixation() error

	// Impulse shows the neutral impulse (filled circle).
	Impulse() error

	// Blank clears the display.
	Blank() error

	// Message shows free text (instructions, prompts, pause and feedback
	// screens). Implementations may interpret it as markdown.
	Message(text string) error
}
