// internal/engine/turn.go
package engine

import (
	"github.com/google/uuid"
	"github.com/kmehta/teenpatti/internal/models"
)

// NextActor scans forward circularly from the current actor's seat and
// returns the first participant who has not packed, or nil if the scan wraps
// without finding one. participants must be ordered by turn order; hands
// holds each participant's status.
//
// The function is a pure helper: it does not decide what a nil result means.
// The action processor treats nil with one live player remaining as the
// auto-win, and nil with more than one as an invariant failure.
func NextActor(participants []*models.Player, hands map[uuid.UUID]models.HandStatus, currentID uuid.UUID) *models.Player {
	n := len(participants)
	if n == 0 {
		return nil
	}

	cur := -1
	for i, p := range participants {
		if p.ID == currentID {
			cur = i
			break
		}
	}
	// A vanished current actor (e.g. seat removed mid-game) degrades to
	// scanning from the top of the order.
	if cur == -1 {
		cur = n - 1
	}

	for step := 1; step <= n; step++ {
		p := participants[(cur+step)%n]
		if p.ID == currentID {
			continue
		}
		if hands[p.ID] != models.HandPacked {
			return p
		}
	}
	return nil
}
