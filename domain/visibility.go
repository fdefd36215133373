package domain

import "github.com/samber/lo"

// VisibleTo reports whether a participant of the given category may see m.
// Lead participants only see lead messages, internal participants see everything.
func (m Message) VisibleTo(viewer Category) bool {
	if viewer == CategoryInternal {
		return true
	}
	return m.Category == CategoryLead
}

// VisibleTo keeps the messages a viewer may see, preserving order.
func VisibleTo(viewer Category, messages []Message) []Message {
	return lo.Filter(messages, func(m Message, _ int) bool {
		return m.VisibleTo(viewer)
	})
}
