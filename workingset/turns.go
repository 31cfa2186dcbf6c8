package workingset

import (
	"strings"

	"github.com/vector-copilot/orchestrator/modelgateway"
)

// turn groups a user query with the assistant/tool exchanges that follow
// it, up to (not including) the next user query.
type turn struct {
	messages []*Message
}

// continuationPrefixes lists the reflection-turn markers appended by the
// Plan/Act loop (VALIDATION_ERROR <name>, TOOL_RESULT <name>) that must
// stay attached to the turn they arose from rather than starting a new
// one, even though they carry RoleUser.
var continuationPrefixes = []string{"TOOL_RESULT ", "VALIDATION_ERROR "}

func isContinuation(m *Message) bool {
	if m == nil || m.Role != modelgateway.RoleUser {
		return false
	}
	text := m.Text()
	for _, p := range continuationPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// groupTurns splits an ordered message list into logical turns, treating
// any RoleUser message as a new turn unless it is a reflection
// continuation of the prior one.
func groupTurns(msgs []*Message) []turn {
	if len(msgs) == 0 {
		return nil
	}
	var turns []turn
	var current turn
	for _, m := range msgs {
		if m == nil {
			continue
		}
		startsNew := m.Role == modelgateway.RoleUser && !isContinuation(m)
		if startsNew && len(current.messages) > 0 {
			turns = append(turns, current)
			current = turn{}
		}
		current.messages = append(current.messages, m)
	}
	if len(current.messages) > 0 {
		turns = append(turns, current)
	}
	return turns
}

func flattenTurns(turns []turn) []*Message {
	var out []*Message
	for _, t := range turns {
		out = append(out, t.messages...)
	}
	return out
}
