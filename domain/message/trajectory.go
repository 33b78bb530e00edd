package message

// Trajectory is the append-only history of a conversation.
//
// Messages are cloned on the way in and on the way out, so an appended
// message can never be altered afterwards.
type Trajectory struct {
	messages []Message
}

// NewTrajectory creates a trajectory seeded with the given messages.
func NewTrajectory(initial ...Message) *Trajectory {
	t := &Trajectory{}
	t.Append(initial...)
	return t
}

// Append adds messages to the end of the trajectory.
func (t *Trajectory) Append(msgs ...Message) {
	for _, m := range msgs {
		t.messages = append(t.messages, m.Clone())
	}
}

// Len returns the number of messages.
func (t *Trajectory) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the history.
func (t *Trajectory) Messages() []Message {
	out := make([]Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

// Last returns the most recent message.
func (t *Trajectory) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1].Clone(), true
}
