package collab

import "sync"

// PresenceManager tracks the cursor and tool of each user in a room.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]PresencePayload // userID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]PresencePayload),
	}
}

// Update merges p into the user's presence and returns the result. A missing
// cursor or tool keeps the previous value.
func (pm *PresenceManager) Update(userID, displayName string, p PresencePayload) PresencePayload {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	cur := pm.presences[userID]
	if p.Cursor != nil {
		c := *p.Cursor
		cur.Cursor = &c
	}
	if p.Tool != "" {
		cur.Tool = p.Tool
	}
	cur.DisplayName = displayName
	pm.presences[userID] = cur
	return cur
}

func (pm *PresenceManager) Remove(userID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, userID)
}

func (pm *PresenceManager) State() PresenceStatePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make(map[string]*PresencePayload, len(pm.presences))
	for id, p := range pm.presences {
		out[id] = &p
	}
	return PresenceStatePayload{Presences: out}
}
