package ports

// SubjectInfoProvider collects the subject identifier once, before
// scheduling begins. Implementations return domain.ErrCancelled when the
// operator cancels, which aborts the entire run before any trial executes.
type SubjectInfoProvider interface {
	Collect() (string, error)
}
