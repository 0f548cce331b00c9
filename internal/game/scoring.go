package game

import (
	"sort"
	"time"

	"github.com/wfunc/bingo-game/internal/models"
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	PlayerID       string     `json:"player_id"`
	DisplayName    string     `json:"display_name"`
	Score          int        `json:"score"`
	IsSubmitted    bool       `json:"is_submitted"`
	SubmissionTime *time.Time `json:"submission_time,omitempty"`
}

// Rank 返回排序后的新切片，不修改入参。
//
// 游戏中与计分阶段：已提交优先，其次分数降序，再按提交时间升序（未提交视为无穷大）。
// 结束阶段不再区分是否提交，只按分数降序、提交时间升序排列。
// 全部相同时按玩家ID排序，保证结果确定。
func Rank(players []models.Player, status models.GameStatus) []models.Player {
	ranked := make([]models.Player, len(players))
	copy(ranked, players)

	submittedFirst := status == models.StatusPlaying || status == models.StatusScoring

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if submittedFirst && a.IsSubmitted != b.IsSubmitted {
			return a.IsSubmitted
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if c := compareSubmission(a.SubmissionTime, b.SubmissionTime); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return ranked
}

// compareSubmission nil 视为无穷大
func compareSubmission(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	default:
		return 0
	}
}

// Leaderboard 生成带名次的排行榜
func Leaderboard(players []models.Player, status models.GameStatus) []LeaderboardEntry {
	ranked := Rank(players, status)
	entries := make([]LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = LeaderboardEntry{
			Rank:           i + 1,
			PlayerID:       p.ID,
			DisplayName:    p.DisplayName,
			Score:          p.Score,
			IsSubmitted:    p.IsSubmitted,
			SubmissionTime: p.SubmissionTime,
		}
	}
	return entries
}
