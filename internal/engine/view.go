// internal/engine/view.go
package engine

import (
	"github.com/kmehta/teenpatti/internal/models"
)

// TableView is the observer-facing snapshot of one lobby: the lobby, its
// seats in turn order with their hand status for the open game, and the open
// game itself (nil between games).
type TableView struct {
	Lobby   *models.Lobby `json:"lobby"`
	Players []PlayerView  `json:"players"`
	Game    *models.Game  `json:"game"`
}

// PlayerView is a seat plus its per-game standing. Status reads BLIND
// between games; it only means something while a game is open.
type PlayerView struct {
	models.Player
	Status models.HandStatus `json:"game_status"`
}

func buildView(s *TableState) *TableView {
	v := &TableView{Lobby: s.Lobby, Players: make([]PlayerView, 0, len(s.Seats))}
	if s.Game != nil && s.Game.Open() {
		v.Game = s.Game
	}
	for _, p := range s.Seats {
		pv := PlayerView{Player: *p, Status: models.HandBlind}
		if v.Game != nil {
			if st, ok := s.Hands[p.ID]; ok {
				pv.Status = st
			}
		}
		v.Players = append(v.Players, pv)
	}
	return v
}
