package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(m *Manager) *[]Event {
	events := &[]Event{}
	m.Observe(ObserverFunc(func(e Event) {
		*events = append(*events, e)
	}))
	return events
}

func TestCreateFirstTabBecomesActive(t *testing.T) {
	m := New()
	events := collect(m)

	id := m.Create("https://example.com")

	assert.Equal(t, id, m.Active())
	require.Len(t, *events, 2)
	assert.Equal(t, Created, (*events)[0].Kind)
	assert.Equal(t, Activated, (*events)[1].Kind)
}

func TestCloseActiveTabPromotesNext(t *testing.T) {
	m := New()
	a := m.Create("https://a.example")
	b := m.Create("https://b.example")
	events := collect(m)

	require.NoError(t, m.Close(a))

	assert.Equal(t, b, m.Active())
	require.Len(t, *events, 2)
	assert.Equal(t, Closed, (*events)[0].Kind)
	assert.Equal(t, Activated, (*events)[1].Kind)
	assert.Equal(t, b, (*events)[1].TabID)
}

func TestCloseUnknownTabIsNotFound(t *testing.T) {
	m := New()
	err := m.Close(ID("missing"))
	require.Error(t, err)
}

func TestActivateEmitsDeactivateThenActivate(t *testing.T) {
	m := New()
	a := m.Create("https://a.example")
	b := m.Create("https://b.example")
	events := collect(m)

	require.NoError(t, m.Activate(b))

	require.Len(t, *events, 2)
	assert.Equal(t, Deactivated, (*events)[0].Kind)
	assert.Equal(t, a, (*events)[0].TabID)
	assert.Equal(t, Activated, (*events)[1].Kind)
	assert.Equal(t, b, (*events)[1].TabID)
}

func TestReorderClampsIndex(t *testing.T) {
	m := New()
	a := m.Create("https://a.example")
	b := m.Create("https://b.example")
	c := m.Create("https://c.example")

	require.NoError(t, m.Reorder(a, 999))

	assert.Equal(t, []ID{b, c, a}, m.Order())
}

func TestUpdatesAreIdempotentButAlwaysEmit(t *testing.T) {
	m := New()
	id := m.Create("https://example.com")
	events := collect(m)

	require.NoError(t, m.UpdateTitle(id, "Same Title"))
	require.NoError(t, m.UpdateTitle(id, "Same Title"))

	require.Len(t, *events, 2)
	assert.Equal(t, TitleChanged, (*events)[0].Kind)
	assert.Equal(t, TitleChanged, (*events)[1].Kind)
}

func TestGroupLifecycle(t *testing.T) {
	m := New()
	a := m.Create("https://a.example")
	b := m.Create("https://b.example")

	gid, err := m.CreateGroup("Research", []ID{a, b})
	require.NoError(t, err)

	ta, err := m.Get(a)
	require.NoError(t, err)
	assert.Equal(t, gid, ta.GroupID)

	require.NoError(t, m.RemoveFromGroup(a))
	ta, err = m.Get(a)
	require.NoError(t, err)
	assert.Equal(t, ID(""), ta.GroupID)

	require.NoError(t, m.DeleteGroup(gid))
	_, err = m.Group(gid)
	require.Error(t, err)

	// tabs still exist: deleting a group never closes tabs (invariant 4).
	_, err = m.Get(b)
	require.NoError(t, err)
	tb, _ := m.Get(b)
	assert.Equal(t, ID(""), tb.GroupID)
}

func TestCloseRemovesFromGroup(t *testing.T) {
	m := New()
	a := m.Create("https://a.example")
	b := m.Create("https://b.example")
	gid, err := m.CreateGroup("Research", []ID{a, b})
	require.NoError(t, err)

	require.NoError(t, m.Close(a))

	g, err := m.Group(gid)
	require.NoError(t, err)
	assert.NotContains(t, g.Tabs, a)
	assert.Contains(t, g.Tabs, b)
}

func TestDuplicateCopiesURL(t *testing.T) {
	m := New()
	a := m.Create("https://example.com/page")

	dup, err := m.Duplicate(a)
	require.NoError(t, err)

	td, err := m.Get(dup)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", td.URL)
	assert.NotEqual(t, a, dup)
}
