package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wfunc/bingo-game/internal/config"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/logger"
)

// 响应体最大读取字节
const maxResponseBytes = 1 << 20

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GeminiClient 调用 Gemini generateContent 接口
type GeminiClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiClient 创建客户端
func NewGeminiClient(cfg *config.GeneratorConfig) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GeminiClient{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Prompts 按主题生成题目
func (c *GeminiClient) Prompts(ctx context.Context, topic string, n int) ([]string, error) {
	instruction := fmt.Sprintf(
		"Generate exactly %d short networking bingo prompts for an event about %q. "+
			"Each prompt starts with \"Find someone who\" and is at most 8 words. "+
			"Return one prompt per line with no numbering and no extra text.", n, topic)

	text, err := c.generate(ctx, "prompts", instruction, 0.9, 40*n+100)
	if err != nil {
		return nil, err
	}
	prompts := parseList(text)
	if len(prompts) == 0 {
		return nil, apperrors.New(apperrors.ErrGeneratorFailed, "返回内容中没有题目")
	}
	if len(prompts) > n {
		prompts = prompts[:n]
	}
	return prompts, nil
}

// Icebreaker 生成一句破冰语
func (c *GeminiClient) Icebreaker(ctx context.Context, fact string) (string, error) {
	instruction := fmt.Sprintf(
		"Turn this fact about a person into one friendly, short icebreaker sentence written in first person. "+
			"Return only the sentence.\nFact: %s", fact)

	text, err := c.generate(ctx, "icebreaker", instruction, 0.7, 80)
	if err != nil {
		return "", err
	}
	sentence := firstSentence(text)
	if sentence == "" {
		return "", apperrors.New(apperrors.ErrGeneratorFailed, "返回内容为空")
	}
	return sentence, nil
}

// FollowUpQuestions 生成追问
func (c *GeminiClient) FollowUpQuestions(ctx context.Context, text string) ([]string, error) {
	instruction := fmt.Sprintf(
		"Suggest 3 short follow-up questions someone could ask a person who introduced themselves like this: %q. "+
			"Return one question per line with no numbering.", text)

	out, err := c.generate(ctx, "follow_up", instruction, 0.7, 150)
	if err != nil {
		return nil, err
	}
	questions := parseList(out)
	if len(questions) == 0 {
		return nil, apperrors.New(apperrors.ErrGeneratorFailed, "返回内容中没有问题")
	}
	if len(questions) > 3 {
		questions = questions[:3]
	}
	return questions, nil
}

func (c *GeminiClient) generate(ctx context.Context, shape, instruction string, temperature float64, maxTokens int) (text string, err error) {
	begin := time.Now()
	defer func() { logger.LogGeneratorCall(shape, time.Since(begin), err) }()

	if c.apiKey == "" {
		return "", apperrors.New(apperrors.ErrGeneratorFailed, "未配置 API Key")
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: instruction}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "构建请求失败")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "构建请求失败")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "请求失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrGeneratorFailed, "读取响应失败")
	}

	var parsed geminiResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", apperrors.Newf(apperrors.ErrGeneratorFailed, "HTTP %d", resp.StatusCode)
		}
		return "", apperrors.Wrap(jsonErr, apperrors.ErrGeneratorFailed, "解析响应失败")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", apperrors.Newf(apperrors.ErrGeneratorFailed, "HTTP %d: %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.Newf(apperrors.ErrGeneratorFailed, "HTTP %d", resp.StatusCode)
	}

	var sb strings.Builder
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", apperrors.New(apperrors.ErrGeneratorFailed, "没有候选结果")
	}
	return sb.String(), nil
}
