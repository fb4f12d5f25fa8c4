package llm

import (
	"fmt"
	"strings"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/puzzle"
)

func deckString() string {
	return labelList(game.FixedDeck())
}

func labelList(values []float64) string {
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = game.FormatValue(v)
	}
	return "[" + strings.Join(labels, ", ") + "]"
}

func puzzleSystemPrompt() string {
	return `You design puzzles for Power Countdown, a game where the player combines numbers pairwise until one equals the target.

Respond with ONLY a JSON object (no markdown, no code fences, no extra text) matching this exact schema:
{
  "target": <integer>,
  "numbers": [<the fixed starting numbers>]
}`
}

func puzzlePrompt(d game.Difficulty) string {
	deck := deckString()
	return fmt.Sprintf(`Generate a 'Power Countdown' math puzzle using a FIXED set of starting numbers: %s.
Difficulty Level: %s

Instructions:
- %s
- The target MUST be an integer.
- Verify that the target is mathematically reachable using ONLY the provided numbers.

Allowed operations:
1. Multiplication (a * b)
2. Exponentiation (a ^ b)
3. Reciprocal (1 / a) -> This allows for roots (e.g. a ^ (1/b)).

Rules:
- Each starting number can be used AT MOST once.
- Not all numbers need to be used.
- The 'numbers' in the response MUST be the fixed set: %s.`, deck, d, puzzle.Guidance(d), deck)
}

func hintSystemPrompt() string {
	return "You are a concise coach for the Power Countdown number puzzle. Answer in plain text."
}

func hintPrompt(target float64, values []float64) string {
	return fmt.Sprintf(`I am playing Power Countdown with the fixed deck: %s.
Target: %s
Current Numbers Available: %s

Allowed operations: Multiply, Power (a^b), Reciprocal (1/x).

Give me a clear, short hint on the next best step or a strategy to reach the target.
Do not give the full answer immediately if it requires multiple steps, just the first key insight (e.g. "Try finding the 5th root of 243").
Keep it under 30 words.`, deckString(), game.FormatValue(target), labelList(values))
}

func retryPrompt(badJSON string) string {
	return fmt.Sprintf(`Your previous response was not valid JSON. Here is what you returned:
%s

Return ONLY the corrected JSON object matching this schema (no markdown, no code fences):
{
  "target": <integer>,
  "numbers": [<the fixed starting numbers>]
}`, badJSON)
}
