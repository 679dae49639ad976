package wizard

import (
	"fmt"
	"slices"
)

// Step is a named stage of the questionnaire.
type Step string

const (
	StepWelcome         Step = "welcome"
	StepCamera          Step = "camera"
	StepMood            Step = "mood"
	StepFlavor          Step = "flavor"
	StepTemperature     Step = "temperature"
	StepTexture         Step = "texture"
	StepProtocols       Step = "protocols"
	StepAllergies       Step = "allergies"
	StepIngredients     Step = "ingredients"
	StepRecommendations Step = "recommendations"
)

// Event is a transition request applied to the Sequencer.
type Event string

const (
	EventAdvance  Event = "advance"
	EventRetreat  Event = "retreat"
	EventSkip     Event = "skip"
	EventCapture  Event = "capture"
	EventComplete Event = "complete"
)

// RequiredField returns the selection that must be non-empty before the
// user may leave step.
func RequiredField(step Step) (Field, bool) {
	switch step {
	case StepMood:
		return FieldMood, true
	case StepFlavor:
		return FieldFlavor, true
	case StepTemperature:
		return FieldTemperature, true
	case StepTexture:
		return FieldTexture, true
	}
	return "", false
}

// Sequencer is the finite-state machine over the wizard steps. The edge
// table is fixed when the sequencer is built; the only way into
// StepRecommendations is the complete edge of the last question.
type Sequencer struct {
	order   []Step
	edges   map[Step]map[Event]Step
	current Step
}

// NewSequencer builds the step graph, with or without the camera step.
func NewSequencer(withCamera bool) *Sequencer {
	order := []Step{StepWelcome}
	if withCamera {
		order = append(order, StepCamera)
	}
	order = append(order, StepMood, StepFlavor, StepTemperature, StepTexture,
		StepProtocols, StepAllergies, StepIngredients)

	edges := make(map[Step]map[Event]Step, len(order))
	for i, step := range order {
		e := make(map[Event]Step)
		if i > 0 {
			e[EventRetreat] = order[i-1]
		}
		switch {
		case step == StepCamera:
			// the photo step is left by taking a photo or skipping it
			e[EventCapture] = order[i+1]
			e[EventSkip] = order[i+1]
		case i < len(order)-1:
			e[EventAdvance] = order[i+1]
		default:
			e[EventComplete] = StepRecommendations
		}
		edges[step] = e
	}
	// terminal: no outgoing edges
	edges[StepRecommendations] = map[Event]Step{}

	return &Sequencer{order: order, edges: edges, current: order[0]}
}

// Current returns the active step.
func (s *Sequencer) Current() Step {
	return s.current
}

// Steps returns the question steps in order followed by the terminal step.
func (s *Sequencer) Steps() []Step {
	return append(slices.Clone(s.order), StepRecommendations)
}

// HasCamera reports whether the photo step is part of this sequence.
func (s *Sequencer) HasCamera() bool {
	return slices.Contains(s.order, StepCamera)
}

// Can reports whether ev has an edge from the current step.
func (s *Sequencer) Can(ev Event) bool {
	_, ok := s.edges[s.current][ev]
	return ok
}

// Fire applies ev and returns the new current step.
func (s *Sequencer) Fire(ev Event) (Step, error) {
	next, ok := s.edges[s.current][ev]
	if !ok {
		return s.current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, s.current)
	}
	s.current = next
	return next, nil
}

// AtLastQuestion reports whether advancing would finish the questionnaire.
func (s *Sequencer) AtLastQuestion() bool {
	return s.Can(EventComplete)
}

// Terminal reports whether the sequence has reached recommendations.
func (s *Sequencer) Terminal() bool {
	return s.current == StepRecommendations
}

// Reset moves back to the first step.
func (s *Sequencer) Reset() {
	s.current = s.order[0]
}
