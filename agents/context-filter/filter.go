package contextfilter

import (
	"context"
	"fmt"
	"log"
	"strings"

	"context-stack/internal/models"
)

// OnRequest prepends the user name and the current time to the first
// message of body. Weather is not injected here.
func (p *ContextProvider) OnRequest(ctx context.Context, body *models.ConversationBody, user *models.UserInfo) (*models.ConversationBody, error) {
	var parts []string

	if user != nil {
		parts = append(parts, fmt.Sprintf("User name is %s.", user.Name))
	}

	currentTime, err := p.CurrentTime()
	if err != nil {
		return nil, fmt.Errorf("failed to render current time: %w", err)
	}
	parts = append(parts, currentTime)

	if body == nil || len(body.Messages) == 0 {
		return body, nil
	}

	inject := strings.Join(parts, " ")
	body.Messages[0].Content = inject + " " + body.Messages[0].Content

	return body, nil
}

// OnResponse appends the default location's forecast to every choice that
// carries text, when any message of the conversation mentions the weather.
func (p *ContextProvider) OnResponse(ctx context.Context, body *models.ConversationBody, user *models.UserInfo) *models.ConversationBody {
	if body == nil {
		return body
	}

	userName := "<none>"
	if user != nil {
		userName = user.Name
	}
	log.Printf("outlet: %d messages, %d choices, user=%s", len(body.Messages), len(body.Choices), userName)

	if !MentionsWeather(body.Messages) {
		return body
	}

	forecast := p.Forecast(ctx, "")

	for i := range body.Choices {
		choice := &body.Choices[i]
		if choice.Text == nil {
			continue
		}
		text := *choice.Text + "\n\n" + forecast
		choice.Text = &text
	}

	return body
}

// MentionsWeather reports whether any message contains "weather", ignoring case
func MentionsWeather(messages []models.Message) bool {
	for _, message := range messages {
		if strings.Contains(strings.ToLower(message.Content), "weather") {
			return true
		}
	}
	return false
}
