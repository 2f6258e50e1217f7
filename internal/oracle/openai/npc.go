package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/hollowmoor/tableside/internal/oracle"
)

const npcSystemPrompt = `You are roleplaying one non-player character in a tabletop session. Stay in
character; never narrate for the player or reveal hidden knowledge. Answer
in %s with a single JSON object, no prose around it:

  {"text": "<what the character says and does>",
   "emotion": "<one word>",
   "action": "<short physical action or empty>",
   "relation_delta": <-2..2 shift in attitude toward the player>}`

// npcPayload is the wire shape of an NPC reply.
type npcPayload struct {
	Text          string `json:"text"`
	Emotion       string `json:"emotion"`
	Action        string `json:"action"`
	RelationDelta int    `json:"relation_delta"`
}

// Respond implements oracle.NPCOracle.
func (c *Client) Respond(ctx context.Context, npcContext oracle.NPCContext) (oracle.NPCReply, error) {
	response, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.config.NPCModel,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(npcSystemPrompt, languageName(npcContext.Language)),
			},
			{Role: goopenai.ChatMessageRoleUser, Content: renderNPCPrompt(npcContext)},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return oracle.NPCReply{}, fmt.Errorf("npc completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return oracle.NPCReply{}, fmt.Errorf("npc completion returned no choices")
	}

	return parseNPCReply(response.Choices[0].Message.Content)
}

func renderNPCPrompt(npcContext oracle.NPCContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CHARACTER: %s\n", npcContext.Name)
	if npcContext.Persona != "" {
		fmt.Fprintf(&b, "PERSONA: %s\n", npcContext.Persona)
	}
	if npcContext.Speech != "" {
		fmt.Fprintf(&b, "SPEECH STYLE: %s\n", npcContext.Speech)
	}
	if npcContext.Disposition != "" {
		fmt.Fprintf(&b, "DISPOSITION: %s\n", npcContext.Disposition)
	}
	if npcContext.Directive != "" {
		fmt.Fprintf(&b, "DIRECTIVE: %s\n", npcContext.Directive)
	}
	if npcContext.Verbose {
		b.WriteString("STYLE: answer at length, with texture and detail.\n")
	} else {
		b.WriteString("STYLE: answer briefly, a few sentences at most.\n")
	}

	if len(npcContext.Messages) > 0 {
		b.WriteString("RECENT CONVERSATION:\n")
		for _, message := range npcContext.Messages {
			fmt.Fprintf(&b, "  [%s] %s\n", message.Role, message.Text)
		}
	}

	fmt.Fprintf(&b, "PLAYER: %s\n", npcContext.PlayerInput)
	if npcContext.Instruction != "" {
		fmt.Fprintf(&b, "DIRECTOR'S INSTRUCTION: %s\n", npcContext.Instruction)
	}

	return b.String()
}

func parseNPCReply(raw string) (oracle.NPCReply, error) {
	raw = stripFences(raw)

	var payload npcPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return oracle.NPCReply{}, fmt.Errorf("decode npc reply %q: %w", raw, err)
	}
	if payload.Text == "" {
		return oracle.NPCReply{}, fmt.Errorf("npc reply without text")
	}

	return oracle.NPCReply{
		Text:          payload.Text,
		Emotion:       payload.Emotion,
		Action:        payload.Action,
		RelationDelta: payload.RelationDelta,
	}, nil
}
