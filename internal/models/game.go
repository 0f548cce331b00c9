package models

import (
	"time"

	"gorm.io/datatypes"
)

// GameStatus 游戏阶段
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"  // 等待玩家加入
	StatusPlaying  GameStatus = "playing"  // 游戏中
	StatusScoring  GameStatus = "scoring"  // 计分窗口
	StatusFinished GameStatus = "finished" // 已结束
)

// Valid 是否为已知阶段
func (s GameStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusPlaying, StatusScoring, StatusFinished:
		return true
	}
	return false
}

// Game 宾果游戏房间表，ID 即房间号
type Game struct {
	ID                   string                      `gorm:"primaryKey;size:16" json:"id"`
	AdminID              string                      `gorm:"size:64;not null;index" json:"admin_id"`
	Industry             string                      `gorm:"size:200" json:"industry"`
	Prompts              datatypes.JSONSlice[string] `json:"prompts"`
	GridSize             int                         `gorm:"not null" json:"grid_size"`
	TimerDurationMinutes int                         `gorm:"not null" json:"timer_duration_minutes"`
	Status               GameStatus                  `gorm:"size:20;not null;default:'waiting';index" json:"status"`
	StartTime            *time.Time                  `json:"start_time,omitempty"`
	ScoringDeadline      *time.Time                  `json:"scoring_deadline,omitempty"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// TableName 指定表名
func (Game) TableName() string {
	return "games"
}

// SquareCount 棋盘格子总数
func (g *Game) SquareCount() int {
	return g.GridSize * g.GridSize
}
