package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/session/sessiontest"
)

func TestWorkspaceSelectionEmitsEvents(t *testing.T) {
	ws := session.NewWorkspace()
	var events []session.Event
	unsubscribe := ws.Subscribe(func(ev session.Event) { events = append(events, ev) })

	s := sessiontest.Session("ride", sessiontest.Steady(301, 200, 140), 0, 100, 50, 150)
	ws.Add(s)
	require.Len(t, events, 1)
	assert.Equal(t, session.SelectionChanged, events[0].Kind)
	assert.Same(t, s, ws.Current())

	require.NoError(t, ws.Select("ride", "iv2", "iv1", "iv2"))
	sel := ws.Selection("ride")
	require.Len(t, sel, 2)
	assert.Equal(t, "iv2", sel[0].ID)
	assert.Equal(t, "iv1", sel[1].ID)
	require.Len(t, events, 2)

	require.NoError(t, ws.ClearSelection("ride"))
	assert.Empty(t, ws.Selection("ride"))

	unsubscribe()
	require.NoError(t, ws.Select("ride", "iv1"))
	assert.Len(t, events, 3)
}

func TestWorkspaceRejectsUnknownIDs(t *testing.T) {
	ws := session.NewWorkspace()
	ws.Add(sessiontest.Session("ride", sessiontest.Steady(10, 200, 140), 0, 5))

	require.ErrorIs(t, ws.Select("ride", "nope"), session.ErrUnknownInterval)
	require.ErrorIs(t, ws.Select("other", "iv1"), session.ErrUnknownSession)
	require.ErrorIs(t, ws.Hover("ride", "nope"), session.ErrUnknownInterval)
	require.ErrorIs(t, ws.Hover("other", "iv1"), session.ErrUnknownSession)
	require.ErrorIs(t, ws.Activate("other"), session.ErrUnknownSession)
}

func TestWorkspaceHoverEvents(t *testing.T) {
	ws := session.NewWorkspace()
	ws.Add(sessiontest.Session("ride", sessiontest.Steady(10, 200, 140), 0, 5))
	var events []session.Event
	ws.Subscribe(func(ev session.Event) { events = append(events, ev) })

	require.NoError(t, ws.Hover("ride", "iv1"))
	require.NoError(t, ws.ClearHover("ride"))
	require.Len(t, events, 2)
	assert.Equal(t, session.HoverStarted, events[0].Kind)
	require.NotNil(t, events[0].Interval)
	assert.Equal(t, "iv1", events[0].Interval.ID)
	assert.Equal(t, session.HoverCleared, events[1].Kind)
	assert.Nil(t, events[1].Interval)
}

func TestWorkspaceAddInterval(t *testing.T) {
	ws := session.NewWorkspace()
	original := sessiontest.Session("ride", sessiontest.Steady(10, 200, 140), 0, 5)
	ws.Add(original)

	iv, err := ws.AddInterval("ride", "", 2, 8)
	require.NoError(t, err)
	assert.Equal(t, "Interval 2", iv.Name)
	assert.Equal(t, "ride", iv.SessionID)

	current, ok := ws.Session("ride")
	require.True(t, ok)
	assert.Len(t, current.Intervals, 2)
	assert.Len(t, original.Intervals, 1)

	_, err = ws.AddInterval("ride", "bad", 8, 2)
	require.ErrorIs(t, err, session.ErrMalformedInterval)

	again, err := ws.AddInterval("ride", "", 2, 8)
	require.NoError(t, err)
	assert.NotEqual(t, iv.ID, again.ID)

	_, err = ws.AddInterval("ride", "point", 4, 4)
	require.NoError(t, err)

	reloaded := session.NewWorkspace()
	reloaded.Add(sessiontest.Session("ride", sessiontest.Steady(10, 200, 140), 0, 5))
	same, err := reloaded.AddInterval("ride", "", 2, 8)
	require.NoError(t, err)
	assert.Equal(t, iv.ID, same.ID)
}
