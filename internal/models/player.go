package models

import (
	"time"

	"gorm.io/datatypes"
)

// CheckedSquare 已勾选的格子及匹配到的名字
type CheckedSquare struct {
	SquareIndex int      `json:"square_index"`
	Names       []string `json:"names"`
}

// Player 玩家表，(GameID, ID) 唯一
type Player struct {
	GameID         string                             `gorm:"primaryKey;size:16" json:"game_id"`
	ID             string                             `gorm:"primaryKey;size:64" json:"id"`
	DisplayName    string                             `gorm:"size:100;not null" json:"display_name"`
	Icebreaker     string                             `gorm:"size:500" json:"icebreaker"`
	CheckedSquares datatypes.JSONSlice[CheckedSquare] `json:"checked_squares"`
	IsSubmitted    bool                               `gorm:"not null;default:false" json:"is_submitted"`
	SubmissionTime *time.Time                         `json:"submission_time,omitempty"`
	Score          int                                `gorm:"not null;default:0" json:"score"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
}

// TableName 指定表名
func (Player) TableName() string {
	return "players"
}
