package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
)

func TestFallbackPromptsSuccess(t *testing.T) {
	stub := NewStub()
	f := NewFallback(stub, "")

	prompts, warnings := f.Prompts(context.Background(), "retail", 16)
	assert.Len(t, prompts, 16)
	assert.Equal(t, "retail prompt 1", prompts[0])
	assert.Empty(t, warnings)
	assert.Equal(t, 1, stub.CallCount("prompts"))
}

func TestFallbackPromptsShort(t *testing.T) {
	stub := NewStub()
	stub.Short = 4
	f := NewFallback(stub, "")

	prompts, warnings := f.Prompts(context.Background(), "retail", 16)
	assert.Len(t, prompts, 16)
	assert.Equal(t, "retail prompt 12", prompts[11])
	assert.Equal(t, fallbackPrompts[0], prompts[12])
	assert.Len(t, warnings, 1)
}

func TestFallbackPromptsFailure(t *testing.T) {
	stub := NewStub()
	stub.Err = apperrors.New(apperrors.ErrGeneratorFailed, "down")
	f := NewFallback(stub, "")

	prompts, warnings := f.Prompts(context.Background(), "retail", 49)
	assert.Len(t, prompts, 49)
	assert.Equal(t, FallbackPrompts(49), prompts)
	assert.Len(t, warnings, 1)
	// 不自动重试
	assert.Equal(t, 1, stub.CallCount("prompts"))
}

func TestFallbackDisabled(t *testing.T) {
	f := NewFallback(nil, "Say hi!")

	prompts, warnings := f.Prompts(context.Background(), "x", 4)
	assert.Len(t, prompts, 4)
	assert.NotEmpty(t, warnings)

	text, warnings := f.Icebreaker(context.Background(), "fact")
	assert.Equal(t, "Say hi!", text)
	assert.NotEmpty(t, warnings)

	questions, warnings := f.FollowUpQuestions(context.Background(), "text")
	assert.Len(t, questions, 3)
	assert.NotEmpty(t, warnings)
}

func TestFallbackIcebreaker(t *testing.T) {
	stub := NewStub()
	f := NewFallback(stub, "")

	text, warnings := f.Icebreaker(context.Background(), "sailing")
	assert.Equal(t, "Ask me about sailing", text)
	assert.Empty(t, warnings)

	stub.Err = apperrors.New(apperrors.ErrGeneratorFailed)
	text, warnings = f.Icebreaker(context.Background(), "sailing")
	assert.Equal(t, DefaultFallbackIcebreaker, text)
	assert.Len(t, warnings, 1)
}

func TestFallbackFollowUp(t *testing.T) {
	stub := NewStub()
	f := NewFallback(stub, "")

	questions, warnings := f.FollowUpQuestions(context.Background(), "I sail")
	assert.Len(t, questions, 3)
	assert.Empty(t, warnings)

	stub.Err = apperrors.New(apperrors.ErrGeneratorFailed)
	questions, warnings = f.FollowUpQuestions(context.Background(), "I sail")
	assert.Equal(t, fallbackQuestions, questions)
	assert.Len(t, warnings, 1)
}

func TestFallbackZero(t *testing.T) {
	prompts, warnings := NewFallback(NewStub(), "").Prompts(context.Background(), "x", 0)
	assert.Empty(t, prompts)
	assert.Empty(t, warnings)
}
