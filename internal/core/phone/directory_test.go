package phone

import (
	"testing"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestDirectorySnapshotReplacesEverything(t *testing.T) {
	d := NewDirectory()
	d.SetSelf("me")

	d.ApplySnapshot([]domain.Participant{
		{ID: "me", DisplayName: "Me"},
		{ID: "b", DisplayName: "Bob"},
		{ID: "a", DisplayName: "Ann"},
		{ID: "", DisplayName: "ghost"},
	})
	assert.Equal(t, []domain.Participant{
		{ID: "a", DisplayName: "Ann"},
		{ID: "b", DisplayName: "Bob"},
	}, d.List())

	_, ok := d.Lookup("me")
	assert.False(t, ok, "self is never listed")

	d.ApplySnapshot([]domain.Participant{{ID: "c", DisplayName: "Cid"}})
	_, ok = d.Lookup("a")
	assert.False(t, ok)
	assert.Len(t, d.List(), 1)
}

func TestDirectoryListOrdersDuplicateNamesByID(t *testing.T) {
	d := NewDirectory()
	d.ApplySnapshot([]domain.Participant{
		{ID: "z", DisplayName: "Sam"},
		{ID: "y", DisplayName: "Sam"},
	})
	assert.Equal(t, []domain.Participant{
		{ID: "y", DisplayName: "Sam"},
		{ID: "z", DisplayName: "Sam"},
	}, d.List())
}

func TestDirectoryFind(t *testing.T) {
	d := NewDirectory()
	d.ApplySnapshot([]domain.Participant{
		{ID: "1", DisplayName: "Bob"},
		{ID: "2", DisplayName: "Sam"},
		{ID: "3", DisplayName: "sam"},
	})

	p, ok := d.Find("bob")
	assert.True(t, ok)
	assert.Equal(t, domain.ParticipantID("1"), p.ID)

	p, ok = d.Find("2")
	assert.True(t, ok)
	assert.Equal(t, "Sam", p.DisplayName)

	_, ok = d.Find("Sam")
	assert.False(t, ok, "ambiguous names do not resolve")

	_, ok = d.Find("nobody")
	assert.False(t, ok)
}

func TestSetSelfDropsOwnEntry(t *testing.T) {
	d := NewDirectory()
	d.ApplySnapshot([]domain.Participant{{ID: "me", DisplayName: "Me"}})
	d.SetSelf("me")

	assert.Empty(t, d.List())
	assert.Equal(t, domain.ParticipantID("me"), d.Self())
}
