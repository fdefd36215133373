package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type room map[string]contract.Connection

// Registry maps conversations to the live connections attached to them.
// A connection belongs to at most one room.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[domain.ConversationID]room   // conversation -> connections
	memberships map[string]domain.ConversationID // connection -> conversation
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[domain.ConversationID]room),
		memberships: make(map[string]domain.ConversationID),
	}
}

// Join attaches conn to the room of conversationID, creating the room on the fly.
// Joining the same room again is a no-op.
// A connection already in another room gets ErrAlreadyJoined and stays where it is,
// switching conversations means closing and reconnecting.
func (r *Registry) Join(conn contract.Connection, conversationID domain.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.memberships[conn.ID()]; ok {
		if current == conversationID {
			return nil
		}
		return errors.ErrAlreadyJoined
	}

	members, ok := r.rooms[conversationID]
	if !ok {
		members = make(room)
		r.rooms[conversationID] = members
	}
	members[conn.ID()] = conn
	r.memberships[conn.ID()] = conversationID
	return nil
}

// Leave detaches conn from its room. Unknown connections are ignored.
// Empty rooms are removed so the map does not grow with dead conversations.
func (r *Registry) Leave(conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversationID, ok := r.memberships[conn.ID()]
	if !ok {
		return
	}
	delete(r.memberships, conn.ID())

	if members, ok := r.rooms[conversationID]; ok {
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(r.rooms, conversationID)
		}
	}
}

// Members returns a snapshot of the connections attached to conversationID.
// The slice is owned by the caller, later joins and leaves don't affect it.
func (r *Registry) Members(conversationID domain.ConversationID) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[conversationID]
	snapshot := make([]contract.Connection, 0, len(members))
	for _, conn := range members {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// roomOf reports the conversation conn is attached to, if any.
func (r *Registry) roomOf(conn contract.Connection) (domain.ConversationID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conversationID, ok := r.memberships[conn.ID()]
	return conversationID, ok
}

// RoomCount is the number of conversations with at least one live connection.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
