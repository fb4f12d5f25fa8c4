// Package llm implements puzzle.Source and puzzle.Hinter on top of an
// OpenAI-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/puzzle"
)

// Client talks to one endpoint and tries each configured model in turn.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	model          string
	fallbackModels []string
	logger         *zap.Logger
}

func NewClient(httpClient *http.Client, apiKey, baseURL, model string, fallbackModels []string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:     httpClient,
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		fallbackModels: fallbackModels,
		logger:         logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// puzzleReply is the JSON object the model is asked to return.
type puzzleReply struct {
	Target  *float64  `json:"target"`
	Numbers []float64 `json:"numbers"`
}

func (c *Client) models() []string {
	models := make([]string, 0, 1+len(c.fallbackModels))
	models = append(models, c.model)
	return append(models, c.fallbackModels...)
}

// Generate asks the model for a target of the given difficulty. The numbers it
// returns are ignored; the deck is always the fixed one.
func (c *Client) Generate(ctx context.Context, d game.Difficulty) (puzzle.Puzzle, error) {
	var lastErr error
	for _, model := range c.models() {
		p, err := c.generateWithModel(ctx, d, model)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("model failed, trying next", zap.String("model", model), zap.Error(err))
	}
	return puzzle.Puzzle{}, lastErr
}

func (c *Client) generateWithModel(ctx context.Context, d game.Difficulty, model string) (puzzle.Puzzle, error) {
	system := puzzleSystemPrompt()
	content, err := c.callLLM(ctx, model, system, puzzlePrompt(d), true)
	if err != nil {
		return puzzle.Puzzle{}, fmt.Errorf("%w: %w", puzzle.ErrUpstream, err)
	}

	reply, err := decodePuzzle(content)
	if err != nil {
		c.logger.Warn("LLM returned invalid JSON, retrying", zap.String("model", model), zap.Error(err))
		content, err = c.callLLM(ctx, model, system, retryPrompt(content), true)
		if err != nil {
			return puzzle.Puzzle{}, fmt.Errorf("%w: %w", puzzle.ErrUpstream, err)
		}
		reply, err = decodePuzzle(content)
		if err != nil {
			return puzzle.Puzzle{}, fmt.Errorf("%w: %w", puzzle.ErrInvalidPuzzle, err)
		}
	}

	return puzzle.Puzzle{
		Target:     *reply.Target,
		Numbers:    game.FixedDeck(),
		Difficulty: d,
	}, nil
}

// Hint asks the model for a short hint about the current position.
func (c *Client) Hint(ctx context.Context, target float64, values []float64) (string, error) {
	var lastErr error
	for _, model := range c.models() {
		content, err := c.callLLM(ctx, model, hintSystemPrompt(), hintPrompt(target, values), false)
		if err == nil {
			return content, nil
		}
		lastErr = fmt.Errorf("%w: %w", puzzle.ErrUpstream, err)
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("model failed, trying next", zap.String("model", model), zap.Error(err))
	}
	return "", lastErr
}

func (c *Client) callLLM(ctx context.Context, model, system, user string, wantJSON bool) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if wantJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func decodePuzzle(content string) (puzzleReply, error) {
	var reply puzzleReply
	if err := json.Unmarshal([]byte(stripFences(content)), &reply); err != nil {
		return reply, err
	}
	if reply.Target == nil {
		return reply, fmt.Errorf("missing target")
	}
	return reply, nil
}

// stripFences removes a surrounding markdown code fence, which some models add
// despite being told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
