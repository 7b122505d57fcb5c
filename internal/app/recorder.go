package app

// Recorder receives poll lifecycle events for instrumentation.
type Recorder interface {
	PollCreated()
	PollConcluded(reason string)
	VoteProcessed(result string)
	StoreWriteFailed(op string)
	SetActivePolls(n int)
}

type noopRecorder struct{}

func (noopRecorder) PollCreated()            {}
func (noopRecorder) PollConcluded(string)    {}
func (noopRecorder) VoteProcessed(string)    {}
func (noopRecorder) StoreWriteFailed(string) {}
func (noopRecorder) SetActivePolls(int)      {}
