package core

// ConversationState is the full state of one conversation thread: the ordered
// turn sequence plus the remaining-step budget. It is owned by exactly one
// loop instance at a time; the checkpoint store serializes writers per thread.
type ConversationState struct {
	Messages       []Message `json:"messages"`
	RemainingSteps int       `json:"remaining_steps"`
}

// Append adds turns to the sequence. Turns are immutable once appended.
func (s *ConversationState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Last returns the most recent turn and true, or a zero Message and false
// when the sequence is empty.
func (s *ConversationState) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep-enough copy: the message slice is copied so the caller
// can mutate its own sequence without aliasing. Individual messages are value
// types and never mutated after append.
func (s ConversationState) Clone() ConversationState {
	out := ConversationState{RemainingSteps: s.RemainingSteps}
	if len(s.Messages) > 0 {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}
