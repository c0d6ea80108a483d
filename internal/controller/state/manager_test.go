package state

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
)

func TestStateAndData(t *testing.T) {
	sm := NewManager()

	assert.Equal(t, StateNone, sm.GetState("tg:1"))
	sm.SetState("tg:1", StateLoginEmail)
	sm.SetData("tg:1", "email", "ana@example.com")
	assert.Equal(t, StateLoginEmail, sm.GetState("tg:1"))

	v, ok := sm.GetData("tg:1", "email")
	assert.True(t, ok)
	assert.Equal(t, "ana@example.com", v)

	_, ok = sm.GetData("tg:2", "email")
	assert.False(t, ok)

	sm.SetState("tg:1", StateNone)
	_, ok = sm.GetData("tg:1", "email")
	assert.True(t, ok, "resetting the state keeps scratch data")
}

func TestClearDialogKeepsBindingAndDraft(t *testing.T) {
	sm := NewManager()
	key := "tg:1"

	sm.Bind(key, Binding{UID: "u1", SessionID: "s1", Token: "tok"})
	draft := sm.Draft(key)
	draft.SelectDate(calendar.Date{Year: 2024, Month: time.March, Day: 15})
	sm.SetState(key, StateBookingNotes)
	sm.SetData(key, "x", 1)

	sm.ClearDialog(key)

	assert.Equal(t, StateNone, sm.GetState(key))
	_, ok := sm.GetData(key, "x")
	assert.False(t, ok)
	b, ok := sm.GetBinding(key)
	assert.True(t, ok)
	assert.Equal(t, "u1", b.UID)
	assert.Same(t, draft, sm.Draft(key))
	assert.False(t, sm.Draft(key).State().Date.IsZero())

	sm.ResetDraft(key)
	assert.NotSame(t, draft, sm.Draft(key))
	assert.True(t, sm.Draft(key).State().Date.IsZero())
	_, ok = sm.GetBinding(key)
	assert.True(t, ok)
}

func TestForgetSession(t *testing.T) {
	sm := NewManager()
	sm.Bind("tg:1", Binding{UID: "u1", SessionID: "s1"})
	sm.Bind("web:s1", Binding{UID: "u1", SessionID: "s1"})
	sm.Bind("tg:2", Binding{UID: "u1", SessionID: "s2"})
	sm.Draft("tg:3")

	keys := sm.ForgetSession("s1")
	sort.Strings(keys)
	assert.Equal(t, []string{"tg:1", "web:s1"}, keys)

	_, ok := sm.GetBinding("tg:1")
	assert.False(t, ok)
	_, ok = sm.GetBinding("tg:2")
	assert.True(t, ok)
	assert.Nil(t, sm.ForgetSession(""))

	sm.Forget("tg:2")
	_, ok = sm.GetBinding("tg:2")
	assert.False(t, ok)
}

func TestDraftIsSharedPerKey(t *testing.T) {
	sm := NewManager()

	var wg sync.WaitGroup
	drafts := make([]any, 16)
	for i := range drafts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			drafts[i] = sm.Draft("web:s1")
		}(i)
	}
	wg.Wait()

	for _, d := range drafts {
		assert.Same(t, drafts[0], d)
	}
}
