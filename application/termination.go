package application

import "github.com/felixgeelhaar/agentstep/domain/message"

// IsFinished reports whether the agent should wait for new user input. A
// step that ended on a user-role message (a tool response) needs another
// model turn.
func IsFinished(newMessages []message.Message) bool {
	if len(newMessages) == 0 {
		return true
	}
	return newMessages[len(newMessages)-1].Role != message.RoleUser
}
