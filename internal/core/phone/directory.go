package phone

import (
	"sort"
	"strings"
	"sync"

	"github.com/Wyydra/yaphone/internal/core/domain"
)

// Directory caches the participants the relay says are online.
// It is only ever replaced wholesale.
type Directory struct {
	mu           sync.RWMutex
	self         domain.ParticipantID
	participants map[domain.ParticipantID]domain.Participant
}

func NewDirectory() *Directory {
	return &Directory{
		participants: make(map[domain.ParticipantID]domain.Participant),
	}
}

func (d *Directory) SetSelf(id domain.ParticipantID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.self = id
	delete(d.participants, id)
}

func (d *Directory) Self() domain.ParticipantID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.self
}

func (d *Directory) ApplySnapshot(participants []domain.Participant) {
	next := make(map[domain.ParticipantID]domain.Participant, len(participants))

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range participants {
		if p.ID.IsZero() || p.ID == d.self {
			continue
		}
		next[p.ID] = p
	}
	d.participants = next
}

func (d *Directory) Lookup(id domain.ParticipantID) (domain.Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.participants[id]
	return p, ok
}

// Find resolves a participant by id or, failing that, by display name
// (case-insensitive). Ambiguous names do not resolve.
func (d *Directory) Find(idOrName string) (domain.Participant, bool) {
	if p, ok := d.Lookup(domain.ParticipantID(idOrName)); ok {
		return p, true
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	var found []domain.Participant
	for _, p := range d.participants {
		if strings.EqualFold(p.DisplayName, idOrName) {
			found = append(found, p)
		}
	}
	if len(found) != 1 {
		return domain.Participant{}, false
	}
	return found[0], true
}

// List returns the participants ordered by display name, then id.
func (d *Directory) List() []domain.Participant {
	d.mu.RLock()
	out := make([]domain.Participant, 0, len(d.participants))
	for _, p := range d.participants {
		out = append(out, p)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out
}
