package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateRoomCode()
		require.NoError(t, err)
		assert.Len(t, code, RoomCodeLength)
		assert.True(t, IsRoomCode(code), code)
		seen[code] = true
	}
	// 31^6 空间上 200 次几乎不会重复
	assert.Greater(t, len(seen), 190)
}

func TestIsRoomCode(t *testing.T) {
	assert.True(t, IsRoomCode("ABC234"))
	assert.False(t, IsRoomCode("ABC23"))
	assert.False(t, IsRoomCode("ABCO12"))
	assert.False(t, IsRoomCode("abc234"))
}

func TestRulesValidation(t *testing.T) {
	r := DefaultRules()
	assert.NoError(t, r.ValidateGridSize(5))
	assert.Error(t, r.ValidateGridSize(3))
	assert.NoError(t, r.ValidateTimer(1))
	assert.Error(t, r.ValidateTimer(0))
	assert.Error(t, r.ValidateTimer(-5))
	assert.Error(t, r.ValidateTimer(181))

	prompts := make([]string, 16)
	for i := range prompts {
		prompts[i] = " p "
	}
	cleaned, err := r.ValidateNewGame(4, 1, prompts)
	require.NoError(t, err)
	assert.Equal(t, "p", cleaned[0])

	_, err = r.ValidateNewGame(4, 1, prompts[:15])
	assert.Error(t, err)

	prompts[3] = ""
	_, err = r.ValidatePrompts(4, prompts)
	assert.Error(t, err)

	name, err := NormalizeName("  Dana ")
	require.NoError(t, err)
	assert.Equal(t, "Dana", name)
}
