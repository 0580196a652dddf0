package pipeline

type State int

const (
	Idle State = iota
	Recording
	Processing
	Done
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Done:
		return "done"
	}
	return "idle"
}

// Observer receives every state transition in order. It may be called from
// any goroutine and must not call back into the Orchestrator.
type Observer interface {
	StateChanged(State)
}

type ObserverFunc func(State)

func (f ObserverFunc) StateChanged(s State) { f(s) }

// Observers fans one transition out to several observers.
type Observers []Observer

func (o Observers) StateChanged(s State) {
	for _, obs := range o {
		obs.StateChanged(s)
	}
}
