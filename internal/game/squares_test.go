package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
)

func TestSetSquareAddAndRemove(t *testing.T) {
	squares, err := SetSquare(nil, 3, []string{" Alice "}, 4, 3)
	require.NoError(t, err)
	require.Len(t, squares, 1)
	assert.Equal(t, 3, squares[0].SquareIndex)
	assert.Equal(t, []string{"Alice"}, squares[0].Names)
	assert.Equal(t, 1, Score(squares))

	// 取消勾选后格子完全消失
	squares, err = SetSquare(squares, 3, nil, 4, 3)
	require.NoError(t, err)
	assert.Empty(t, squares)
	assert.Nil(t, FindSquare(squares, 3))
	assert.Equal(t, 0, Score(squares))
}

func TestSetSquareUpsertKeepsOrder(t *testing.T) {
	var squares []models.CheckedSquare
	var err error
	for _, idx := range []int{9, 2, 5} {
		squares, err = SetSquare(squares, idx, []string{"Bob"}, 4, 3)
		require.NoError(t, err)
	}
	squares, err = SetSquare(squares, 5, []string{"Bob", "Carol"}, 4, 3)
	require.NoError(t, err)

	require.Len(t, squares, 3)
	assert.Equal(t, []int{2, 5, 9}, []int{squares[0].SquareIndex, squares[1].SquareIndex, squares[2].SquareIndex})
	assert.Equal(t, []string{"Bob", "Carol"}, FindSquare(squares, 5).Names)
	assert.Equal(t, len(squares), Score(squares))
}

func TestSetSquareFourthNameRejected(t *testing.T) {
	squares, err := SetSquare(nil, 0, []string{"A", "B", "C"}, 4, 3)
	require.NoError(t, err)

	_, err = SetSquare(squares, 0, []string{"A", "B", "C", "D"}, 4, 3)
	assert.True(t, apperrors.Is(err, apperrors.ErrSquareFull))
	// 原集合不变
	assert.Equal(t, []string{"A", "B", "C"}, squares[0].Names)
}

func TestSetSquareDoesNotMutateInput(t *testing.T) {
	original := []models.CheckedSquare{{SquareIndex: 1, Names: []string{"A"}}}
	next, err := SetSquare(original, 1, []string{"Z"}, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, "A", original[0].Names[0])
	assert.Equal(t, "Z", next[0].Names[0])
}

func TestSetSquareValidation(t *testing.T) {
	tests := []struct {
		name  string
		index int
		names []string
		code  apperrors.ErrorCode
	}{
		{"负数编号", -1, []string{"A"}, apperrors.ErrInvalidSquare},
		{"编号越界", 16, []string{"A"}, apperrors.ErrInvalidSquare},
		{"空名字", 0, []string{"  "}, apperrors.ErrInvalidName},
		{"名字过长", 0, []string{strings.Repeat("x", MaxNameLength+1)}, apperrors.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SetSquare(nil, tt.index, tt.names, 4, 3)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestSetSquareDropsEmptyEntries(t *testing.T) {
	dirty := []models.CheckedSquare{{SquareIndex: 1, Names: nil}, {SquareIndex: 2, Names: []string{"A"}}}
	next, err := SetSquare(dirty, 3, []string{"B"}, 4, 3)
	require.NoError(t, err)
	for _, sq := range next {
		assert.NotEmpty(t, sq.Names)
	}
	assert.Equal(t, 2, Score(next))
}

func TestEqualSquares(t *testing.T) {
	a := []models.CheckedSquare{
		{SquareIndex: 1, Names: []string{"Alice"}},
		{SquareIndex: 4, Names: []string{"Bob", "Carol"}},
	}
	reordered := []models.CheckedSquare{a[1], a[0]}
	assert.True(t, EqualSquares(a, reordered))
	assert.True(t, EqualSquares(nil, []models.CheckedSquare{}))

	assert.False(t, EqualSquares(a, a[:1]))
	assert.False(t, EqualSquares(a, []models.CheckedSquare{a[0], {SquareIndex: 5, Names: []string{"Bob", "Carol"}}}))
	assert.False(t, EqualSquares(a, []models.CheckedSquare{a[0], {SquareIndex: 4, Names: []string{"Carol", "Bob"}}}))

	// 清除一个未勾选的格子，集合不变
	next, err := SetSquare(a, 9, nil, 4, 3)
	require.NoError(t, err)
	assert.True(t, EqualSquares(a, next))
}
