package game

import (
	"sort"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
)

// SetSquare 在已勾选集合上写入一个格子，返回新的集合，不修改入参。
// names 为空表示取消勾选；集合中不会出现名字列表为空的格子。
func SetSquare(squares []models.CheckedSquare, squareIndex int, names []string, gridSize, maxNames int) ([]models.CheckedSquare, error) {
	if squareIndex < 0 || squareIndex >= gridSize*gridSize {
		return nil, apperrors.Newf(apperrors.ErrInvalidSquare, "格子编号 %d 超出范围 [0, %d)", squareIndex, gridSize*gridSize)
	}
	if len(names) > maxNames {
		return nil, apperrors.Newf(apperrors.ErrSquareFull, "格子 %d 最多 %d 个名字", squareIndex, maxNames)
	}

	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		name, err := NormalizeName(n)
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, name)
	}

	next := make([]models.CheckedSquare, 0, len(squares)+1)
	for _, sq := range squares {
		if sq.SquareIndex == squareIndex || len(sq.Names) == 0 {
			continue
		}
		next = append(next, models.CheckedSquare{
			SquareIndex: sq.SquareIndex,
			Names:       append([]string(nil), sq.Names...),
		})
	}

	if len(cleaned) > 0 {
		next = append(next, models.CheckedSquare{SquareIndex: squareIndex, Names: cleaned})
	}

	sort.Slice(next, func(i, j int) bool { return next[i].SquareIndex < next[j].SquareIndex })
	return next, nil
}

// EqualSquares 两个集合勾选的格子及名字完全一致（与顺序无关）
func EqualSquares(a, b []models.CheckedSquare) bool {
	if len(a) != len(b) {
		return false
	}
	byIndex := make(map[int][]string, len(a))
	for _, sq := range a {
		byIndex[sq.SquareIndex] = sq.Names
	}
	for _, sq := range b {
		names, ok := byIndex[sq.SquareIndex]
		if !ok || len(names) != len(sq.Names) {
			return false
		}
		for i := range names {
			if names[i] != sq.Names[i] {
				return false
			}
		}
	}
	return true
}

// FindSquare 查找格子，未勾选返回 nil
func FindSquare(squares []models.CheckedSquare, squareIndex int) *models.CheckedSquare {
	for i := range squares {
		if squares[i].SquareIndex == squareIndex {
			return &squares[i]
		}
	}
	return nil
}

// Score 分数即勾选格子数
func Score(squares []models.CheckedSquare) int {
	return len(squares)
}
