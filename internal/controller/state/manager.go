package state

import (
	"sync"

	"github.com/Freeeeeet/ltrc_platform/internal/booking"
)

// Manager keeps per-conversation state. Keys are opaque: the Telegram
// surface uses the chat, the web surface the session.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*UserData
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[string]*UserData),
	}
}

// entry returns the record for key, creating it. Caller holds sm.mu.
func (sm *Manager) entry(key string) *UserData {
	ud, ok := sm.states[key]
	if !ok {
		ud = &UserData{Data: make(map[string]any)}
		sm.states[key] = ud
	}
	return ud
}

func (sm *Manager) GetState(key string) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if ud, ok := sm.states[key]; ok {
		return ud.State
	}
	return StateNone
}

func (sm *Manager) SetState(key string, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		if ud, ok := sm.states[key]; ok {
			ud.State = StateNone
		}
		return
	}
	sm.entry(key).State = state
}

func (sm *Manager) GetData(key, name string) (any, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if ud, ok := sm.states[key]; ok {
		v, ok := ud.Data[name]
		return v, ok
	}
	return nil, false
}

func (sm *Manager) SetData(key, name string, value any) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(key).Data[name] = value
}

// ClearDialog ends the open dialog: state and scratch data go, the binding
// and the draft stay.
func (sm *Manager) ClearDialog(key string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if ud, ok := sm.states[key]; ok {
		ud.State = StateNone
		ud.Data = make(map[string]any)
	}
}

// Bind records the session the conversation is signed in with.
func (sm *Manager) Bind(key string, b Binding) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(key).Binding = &b
}

// GetBinding returns a copy of the binding, if any.
func (sm *Manager) GetBinding(key string) (Binding, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if ud, ok := sm.states[key]; ok && ud.Binding != nil {
		return *ud.Binding, true
	}
	return Binding{}, false
}

// Draft returns the conversation's booking draft, creating an empty one.
func (sm *Manager) Draft(key string) *booking.Draft {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ud := sm.entry(key)
	if ud.Draft == nil {
		ud.Draft = &booking.Draft{}
	}
	return ud.Draft
}

// ResetDraft discards the draft; the next Draft call starts empty.
func (sm *Manager) ResetDraft(key string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if ud, ok := sm.states[key]; ok {
		ud.Draft = nil
	}
}

// Forget drops everything kept for key.
func (sm *Manager) Forget(key string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, key)
}

// ForgetSession drops every conversation bound to sessionID and returns
// their keys.
func (sm *Manager) ForgetSession(sessionID string) []string {
	if sessionID == "" {
		return nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	var keys []string
	for key, ud := range sm.states {
		if ud.Binding != nil && ud.Binding.SessionID == sessionID {
			keys = append(keys, key)
			delete(sm.states, key)
		}
	}
	return keys
}
