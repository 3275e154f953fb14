package stream

import "github.com/foliotalk/foliotalk/internal/chat"

// MergeDeduplicate concatenates the history buffer and the live buffer and
// collapses duplicate ids, keeping each message at its first occurrence. A
// message that arrived both via live push and a later history page shows up
// exactly once, in the position it was first seen. Order within each input
// is never changed.
func MergeDeduplicate(history, live []chat.Message) []chat.Message {
	merged := make([]chat.Message, 0, len(history)+len(live))
	seen := make(map[string]bool, len(history)+len(live))

	for _, msg := range history {
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		merged = append(merged, msg)
	}
	for _, msg := range live {
		if seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		merged = append(merged, msg)
	}
	return merged
}
