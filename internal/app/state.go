package app

import (
	"time"

	"ragc/internal/domain"
	"ragc/internal/render"
)

// Action identifies a user-initiated operation.
type Action string

const (
	ActionRefresh Action = "refresh"
	ActionCreate  Action = "create"
	ActionDelete  Action = "delete"
	ActionInfo    Action = "info"
	ActionAdd     Action = "add"
	ActionSearch  Action = "search"
	ActionUpload  Action = "upload"
	ActionChat    Action = "chat"
)

// Phase is the lifecycle position of one action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInFlight
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInFlight:
		return "in-flight"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	}
	return "idle"
}

// Settled reports whether the action finished, either way.
func (p Phase) Settled() bool { return p == PhaseSucceeded || p == PhaseFailed }

// Delta is the state change produced by one handler run.
type Delta struct {
	Action  Action
	Outcome Phase

	// Collections is non-nil only when a list call succeeded. ListSeq orders
	// list calls by when they were sent; zero means unordered.
	Collections []string
	ListSeq     uint64
	Info        *domain.CollectionInfo
	Results     *render.ResultsView
	Messages    []domain.ChatMessage
	Notices     []Notice

	// ResetForm asks the UI to clear the form that triggered the action.
	ResetForm bool
	Err       error
}

// State is the whole client-side application state.
type State struct {
	Registry   *Registry
	Transcript *Transcript
	Notifier   *Notifier
	Results    render.ResultsView
	Info       *domain.CollectionInfo

	phases  map[Action]Phase
	listSeq uint64
	now     func() time.Time
}

// NewState creates an idle state whose notifications live for notificationLifetime.
func NewState(notificationLifetime time.Duration) *State {
	return &State{
		Registry:   NewRegistry(),
		Transcript: NewTranscript(),
		Notifier:   NewNotifier(notificationLifetime),
		phases:     make(map[Action]Phase),
		now:        time.Now,
	}
}

// Phase returns the lifecycle phase of a.
func (s *State) Phase(a Action) Phase { return s.phases[a] }

// Busy reports whether any action is in flight.
func (s *State) Busy() bool {
	for _, p := range s.phases {
		if p == PhaseInFlight {
			return true
		}
	}
	return false
}

// Begin moves a to in-flight. It returns false, and changes nothing, when a
// is already in flight; the caller must drop the submission.
func (s *State) Begin(a Action) bool {
	if s.phases[a] == PhaseInFlight {
		return false
	}
	s.phases[a] = PhaseInFlight
	return true
}

// Apply folds a handler's delta into the state and settles its action.
func (s *State) Apply(d Delta) {
	if d.Collections != nil && (d.ListSeq == 0 || d.ListSeq > s.listSeq) {
		if d.ListSeq > 0 {
			s.listSeq = d.ListSeq
		}
		s.Registry.Replace(d.Collections)
		if s.Info != nil && !s.Registry.Contains(s.Info.Name) {
			s.Info = nil
		}
	}
	if d.Info != nil {
		info := *d.Info
		s.Info = &info
	}
	if d.Results != nil {
		s.Results = *d.Results
	}
	if len(d.Messages) > 0 {
		s.Transcript.Append(d.Messages...)
	}
	now := s.now()
	for _, n := range d.Notices {
		s.Notifier.Push(now, n)
	}
	if d.Action != "" && d.Outcome != PhaseInFlight {
		s.phases[d.Action] = d.Outcome
	}
}
