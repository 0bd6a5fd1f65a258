package services

// ImportCompletedEvent is published after an import run finishes, including
// dry runs. Subscribers see the same summary the caller gets.
type ImportCompletedEvent struct {
	DryRun  bool
	Summary ImportSummary
}
