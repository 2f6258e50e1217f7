package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

const narrativeSystemPrompt = `You are the game master narrating a tabletop roleplaying session. Write the
next beat of the story in second person, present tense, in %s. Ground every
detail in the turn context: the scene, the character, the findings, and the
dice result when one is present. Honor any DECISION NOTE. End at a moment
that invites the player to act. Two to four paragraphs.`

// Narrate implements oracle.NarrativeOracle.
func (c *Client) Narrate(ctx context.Context, contextText, lang string) (string, error) {
	response, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.config.NarrativeModel,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(narrativeSystemPrompt, languageName(lang)),
			},
			{Role: goopenai.ChatMessageRoleUser, Content: contextText},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("narrative completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("narrative completion returned no choices")
	}

	return response.Choices[0].Message.Content, nil
}
