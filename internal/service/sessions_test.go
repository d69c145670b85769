package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/model"
)

func TestSessionStore_AcquireCreatesSession(t *testing.T) {
	store := NewSessionStore("business context")

	session, release, err := store.Acquire("")
	require.NoError(t, err)
	defer release()

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, 1, store.Len())

	state := session.State()
	require.Len(t, state.Messages, 1)
	assert.Equal(t, model.RoleSystem, state.Messages[0].Role)
	assert.Equal(t, "business context", state.Messages[0].Content)
	assert.Equal(t, model.ActionElicitPreferences, state.NextAction)
}

func TestSessionStore_OneTurnAtATime(t *testing.T) {
	store := NewSessionStore("")

	session, release, err := store.Acquire("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", session.ID)

	_, _, err = store.Acquire("abc")
	assert.ErrorIs(t, err, ErrTurnInProgress)
	_, err = store.Reset("abc")
	assert.ErrorIs(t, err, ErrTurnInProgress)

	release()
	_, release, err = store.Acquire("abc")
	require.NoError(t, err)
	release()
}

func TestSessionStore_GetAndReset(t *testing.T) {
	store := NewSessionStore("ctx")

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Reset("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, release, err := store.Acquire("s1")
	require.NoError(t, err)
	session.Store(session.State().WithMessage(model.RoleUser, "2 bed in jlt"))
	release()

	state, err := store.Get("s1")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 2)

	state, err = store.Reset("s1")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 1)

	state, err = store.Get("s1")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 1)
}

func TestSession_StateIsACopy(t *testing.T) {
	store := NewSessionStore("ctx")
	session, release, err := store.Acquire("s1")
	require.NoError(t, err)
	defer release()

	state := session.State()
	state.Messages[0].Content = "changed"

	assert.Equal(t, "ctx", session.State().Messages[0].Content)
}
