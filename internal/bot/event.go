package bot

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// EventType is the closed set of inbound event kinds the dispatcher routes on.
type EventType string

const (
	EventText        EventType = "text"
	EventDocument    EventType = "document"
	EventImage       EventType = "image"
	EventAudio       EventType = "audio"
	EventButtonReply EventType = "button_reply"
	EventListReply   EventType = "list_reply"
	EventUnknown     EventType = "unknown"
)

// Document identifies an uploaded file.
type Document struct {
	MediaID  string
	Filename string
	MimeType string
}

// Event is an inbound message after boundary validation. Exactly the fields
// for its Type are set; malformed payloads surface as EventUnknown before any
// flow logic runs.
type Event struct {
	Type      EventType
	From      string
	MessageID string

	Text     string   // EventText
	Document Document // EventDocument
	MediaID  string   // EventImage, EventAudio
	ReplyID  string   // EventButtonReply, EventListReply
}

// Wire shape of a Cloud API webhook delivery. Only the fields the dispatcher
// needs are declared.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`

	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Document *struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		MimeType string `json:"mime_type"`
	} `json:"document"`
	Image *struct {
		ID string `json:"id"`
	} `json:"image"`
	Audio *struct {
		ID string `json:"id"`
	} `json:"audio"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID string `json:"id"`
		} `json:"button_reply"`
		ListReply *struct {
			ID string `json:"id"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// ParseWebhook validates a webhook body into an Event. ok=false means the
// delivery carried no message (status updates etc.) and should just be
// acknowledged.
func ParseWebhook(body []byte) (Event, bool, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Event{}, false, fmt.Errorf("malformed webhook body: %w", err)
	}
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return Event{}, false, nil
	}
	messages := payload.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return Event{}, false, nil
	}

	msg := messages[0]
	if msg.From == "" || msg.ID == "" {
		return Event{}, false, fmt.Errorf("message missing sender or id")
	}

	ev := Event{From: msg.From, MessageID: msg.ID, Type: EventUnknown}
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return ev, true, nil
		}
		ev.Type = EventText
		ev.Text = sanitizeText(msg.Text.Body)
	case "document":
		if msg.Document == nil || msg.Document.ID == "" {
			return ev, true, nil
		}
		ev.Type = EventDocument
		ev.Document = Document{
			MediaID:  msg.Document.ID,
			Filename: msg.Document.Filename,
			MimeType: msg.Document.MimeType,
		}
		if ev.Document.Filename == "" {
			ev.Document.Filename = "document.pdf"
		}
	case "image":
		if msg.Image == nil || msg.Image.ID == "" {
			return ev, true, nil
		}
		ev.Type = EventImage
		ev.MediaID = msg.Image.ID
	case "audio":
		if msg.Audio == nil || msg.Audio.ID == "" {
			return ev, true, nil
		}
		ev.Type = EventAudio
		ev.MediaID = msg.Audio.ID
	case "interactive":
		if msg.Interactive == nil {
			return ev, true, nil
		}
		switch {
		case msg.Interactive.Type == "button_reply" && msg.Interactive.ButtonReply != nil:
			ev.Type = EventButtonReply
			ev.ReplyID = msg.Interactive.ButtonReply.ID
		case msg.Interactive.Type == "list_reply" && msg.Interactive.ListReply != nil:
			ev.Type = EventListReply
			ev.ReplyID = msg.Interactive.ListReply.ID
		}
	}
	return ev, true, nil
}

const maxMessageLength = 4000

// sanitizeText strips null bytes, trims whitespace and clips oversized input.
// The clip backs off to a rune boundary so multibyte text stays valid UTF-8.
func sanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.TrimSpace(text)
	if len(text) > maxMessageLength {
		cut := maxMessageLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}
