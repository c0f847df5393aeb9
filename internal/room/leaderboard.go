package room

import (
	"sort"

	"github.com/google/uuid"

	"github.com/dosip/dosip/internal/models"
)

// LeaderboardEntry is one ranked row. Every player tied at the top score is
// a winner, not just whoever sorted first.
type LeaderboardEntry struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
	Score    int       `json:"score"`
	IsWinner bool      `json:"is_winner"`
}

// Leaderboard holds both rankings for a room.
type Leaderboard struct {
	Drink  []LeaderboardEntry `json:"drink_leaderboard"`
	Action []LeaderboardEntry `json:"action_leaderboard"`
}

// LeaderboardUnsafe ranks players by drink score and action score, highest
// first, with ties broken by join order. Assumes Mu is held.
func (r *Room) LeaderboardUnsafe() Leaderboard {
	return Leaderboard{
		Drink:  rank(r.Players, func(p *models.Player) int { return p.DrinkScore }),
		Action: rank(r.Players, func(p *models.Player) int { return p.ActionScore }),
	}
}

// rank sorts a copy of players by score descending. The stable sort keeps
// join order inside equal scores, which makes the ranking deterministic.
func rank(players []*models.Player, score func(*models.Player) int) []LeaderboardEntry {
	ordered := make([]*models.Player, len(players))
	copy(ordered, players)
	sort.SliceStable(ordered, func(i, j int) bool {
		return score(ordered[i]) > score(ordered[j])
	})

	entries := make([]LeaderboardEntry, 0, len(ordered))
	for _, p := range ordered {
		entries = append(entries, LeaderboardEntry{
			ID:       p.ID,
			Nickname: p.Nickname,
			Score:    score(p),
			IsWinner: len(ordered) > 0 && score(p) == score(ordered[0]),
		})
	}
	return entries
}
