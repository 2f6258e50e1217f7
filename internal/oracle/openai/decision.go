package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/hollowmoor/tableside/internal/oracle"
)

const decisionSystemPrompt = `You are the director of a tabletop roleplaying session. Given the current
turn context, choose exactly one next step and answer with a single JSON
object, no prose around it.

Schema:
  {"action": "respond", "text": "<optional note>", "reasoning": "<why>"}
  {"action": "search_lore", "query": "<what to look up>", "reasoning": "<why>"}
  {"action": "request_check", "intention": "<what the player attempts>", "reason": "<what makes it uncertain>"}
  {"action": "call_agent", "agent_id": "<id>", "instruction": "<what to do>", "reasoning": "<why>"}

Use "search_lore" when established facts would change the scene. Use
"call_agent" with an npc_ id to let that character speak. Use
"request_check" only when the attempt can meaningfully fail. Otherwise use
"respond" to hand off to narration.`

// decisionPayload is the wire shape of a decision reply.
type decisionPayload struct {
	Action      string `json:"action"`
	Text        string `json:"text"`
	Query       string `json:"query"`
	Intention   string `json:"intention"`
	Reason      string `json:"reason"`
	AgentID     string `json:"agent_id"`
	Instruction string `json:"instruction"`
	Reasoning   string `json:"reasoning"`
}

// Decide implements oracle.DecisionOracle.
func (c *Client) Decide(ctx context.Context, contextText, lang string) (oracle.Action, error) {
	response, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.config.DecisionModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: decisionSystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: contextText},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("decision completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("decision completion returned no choices")
	}

	return parseAction(response.Choices[0].Message.Content)
}

// parseAction decodes a decision reply into its action variant. Replies
// wrapped in markdown fences are tolerated.
func parseAction(raw string) (oracle.Action, error) {
	raw = stripFences(raw)

	var payload decisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode decision %q: %w", raw, err)
	}

	switch payload.Action {
	case "respond":
		return oracle.Respond{Text: payload.Text, Reasoning: payload.Reasoning}, nil
	case "search_lore":
		if payload.Query == "" {
			return nil, fmt.Errorf("search_lore decision without a query")
		}
		return oracle.SearchLore{Query: payload.Query, Reasoning: payload.Reasoning}, nil
	case "request_check":
		if payload.Intention == "" {
			return nil, fmt.Errorf("request_check decision without an intention")
		}
		return oracle.RequestCheck{Intention: payload.Intention, Reason: payload.Reason}, nil
	case "call_agent":
		if payload.AgentID == "" {
			return nil, fmt.Errorf("call_agent decision without an agent id")
		}
		return oracle.CallAgent{
			AgentID:     payload.AgentID,
			Instruction: payload.Instruction,
			Reasoning:   payload.Reasoning,
		}, nil
	default:
		return nil, fmt.Errorf("unknown decision action %q", payload.Action)
	}
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
