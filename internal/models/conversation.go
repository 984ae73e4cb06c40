package models

import (
	"encoding/json"
)

// Message is a single chat turn as exchanged with the orchestration host
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Extra holds host fields this package does not interpret (name, images, ids...)
	Extra map[string]json.RawMessage `json:"-"`
}

// Choice is one completion candidate in a response body. Text is nil when
// the host did not send a text field for the choice.
type Choice struct {
	Text *string `json:"text,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ConversationBody is the request/response body handed to the filter hooks.
// A nil Choices means the body carries no choices at all (request mode).
type ConversationBody struct {
	Messages []Message `json:"messages"`
	Choices  []Choice  `json:"choices"`

	Extra map[string]json.RawMessage `json:"-"`
}

// UserInfo describes the caller as supplied by the host
type UserInfo struct {
	Name string `json:"name"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownFields(data, "role", "content")
	if err != nil {
		return err
	}
	*m = Message(p)
	m.Extra = extra
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return withUnknownFields(plain(m), m.Extra)
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	type plain Choice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownFields(data, "text")
	if err != nil {
		return err
	}
	*c = Choice(p)
	c.Extra = extra
	return nil
}

func (c Choice) MarshalJSON() ([]byte, error) {
	type plain Choice
	return withUnknownFields(plain(c), c.Extra)
}

func (u *UserInfo) UnmarshalJSON(data []byte) error {
	type plain UserInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownFields(data, "name")
	if err != nil {
		return err
	}
	*u = UserInfo(p)
	u.Extra = extra
	return nil
}

func (u UserInfo) MarshalJSON() ([]byte, error) {
	type plain UserInfo
	return withUnknownFields(plain(u), u.Extra)
}

func (b *ConversationBody) UnmarshalJSON(data []byte) error {
	type plain ConversationBody
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownFields(data, "messages", "choices")
	if err != nil {
		return err
	}
	*b = ConversationBody(p)
	b.Extra = extra
	return nil
}

// MarshalJSON leaves out messages and choices when the host never sent them,
// so a body survives a decode/encode round trip unchanged.
func (b ConversationBody) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(b.Extra)+2)
	for k, v := range b.Extra {
		fields[k] = v
	}
	if b.Messages != nil {
		fields["messages"] = b.Messages
	}
	if b.Choices != nil {
		fields["choices"] = b.Choices
	}
	return json.Marshal(fields)
}

// ChoiceText returns a Choice carrying the given text
func ChoiceText(text string) Choice {
	return Choice{Text: &text}
}

func unknownFields(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func withUnknownFields(known any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}
