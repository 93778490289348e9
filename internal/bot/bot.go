// Package bot classifies inbound WhatsApp events and drives the interaction
// flows: free chat, URL summary, document tasks, quiz and flashcards. Handlers
// validate synchronously; everything latent (downloads, model calls, sends)
// runs as tracked background tasks.
package bot

import (
	"context"
	"log"
	"time"

	"studybuddy/internal/llm"
	"studybuddy/internal/quota"
	"studybuddy/internal/ratelimit"
	"studybuddy/internal/session"
	"studybuddy/internal/storage"
	"studybuddy/internal/whatsapp"
)

// Transport is the outbound channel collaborator.
type Transport interface {
	SendText(ctx context.Context, to, text string) error
	SendButtons(ctx context.Context, to, text string, buttons []whatsapp.Button) error
	SendList(ctx context.Context, to, bodyText, buttonText string, sections []whatsapp.Section) error
	MarkAsRead(ctx context.Context, messageID string)
	SendReaction(ctx context.Context, to, messageID, emoji string)
	DownloadMedia(ctx context.Context, mediaID, extension string) (string, error)
}

// Extractor is the document-extraction collaborator.
type Extractor interface {
	Validate(filePath string) (bool, string)
	ExtractChunks(ctx context.Context, filePath string) ([]string, error)
	Remove(filePath string)
}

// Pauses between sequential sends; package vars so tests can zero them.
var (
	quizNextDelay    = time.Second
	moreOptionsDelay = 3 * time.Second
)

// External calls inside a flow never outlive this.
const flowTimeout = 2 * time.Minute

type Bot struct {
	transport Transport
	llm       llm.Client
	sessions  *session.Manager
	quota     *quota.Tracker
	limiter   *ratelimit.Limiter
	docs      Extractor
	recorder  storage.Recorder
	tasks     *Runner
}

func New(
	transport Transport,
	llmClient llm.Client,
	sessions *session.Manager,
	quotaTracker *quota.Tracker,
	limiter *ratelimit.Limiter,
	docs Extractor,
	recorder storage.Recorder,
) *Bot {
	return &Bot{
		transport: transport,
		llm:       llmClient,
		sessions:  sessions,
		quota:     quotaTracker,
		limiter:   limiter,
		docs:      docs,
		recorder:  recorder,
		tasks:     NewRunner(),
	}
}

// Tasks exposes the background runner so the caller (and tests) can wait for
// in-flight work.
func (b *Bot) Tasks() *Runner {
	return b.tasks
}

// Handle dispatches one validated inbound event. It never returns an error:
// all effects flow back to the user through the transport.
func (b *Bot) Handle(ev Event) {
	phone := ev.From
	log.Printf("[%s] inbound %s event", whatsapp.MaskPhone(phone), ev.Type)

	b.tasks.Go("mark_read", func() {
		b.transport.MarkAsRead(context.Background(), ev.MessageID)
	})

	// Monthly cap gates everything else.
	if !b.quota.IsAllowed(phone) {
		b.send(phone, b.quota.LimitMessage())
		return
	}

	if b.sessions.IsFirstVisit(phone) {
		b.send(phone, welcomeMessage)
		b.sendButtons(phone, "👇 Tap a button below to explore:", exploreButtons())
		if ev.Type == EventText {
			// The welcome already answers their first text.
			return
		}
	}

	switch ev.Type {
	case EventDocument:
		b.react(ev, "📄")
		b.handleDocument(ev)
	case EventImage:
		b.react(ev, "📸")
		b.handleImage(ev)
	case EventAudio:
		b.react(ev, "🎙️")
		b.handleAudio(ev)
	case EventButtonReply:
		b.handleButtonReply(ev)
	case EventListReply:
		b.handleListReply(ev)
	case EventText:
		b.react(ev, "⚡")
		b.handleText(ev)
	default:
		// Unroutable event: acknowledged above, nothing else to do.
	}
}

// send delivers text as a background task.
func (b *Bot) send(phone, text string) {
	b.tasks.Go("send_text", func() {
		ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
		defer cancel()
		if err := b.transport.SendText(ctx, phone, text); err != nil {
			log.Printf("[%s] send failed: %v", whatsapp.MaskPhone(phone), err)
		}
	})
}

func (b *Bot) sendButtons(phone, text string, buttons []whatsapp.Button) {
	b.tasks.Go("send_buttons", func() {
		ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
		defer cancel()
		if err := b.transport.SendButtons(ctx, phone, text, buttons); err != nil {
			log.Printf("[%s] send buttons failed: %v", whatsapp.MaskPhone(phone), err)
		}
	})
}

func (b *Bot) sendList(phone, bodyText, buttonText string, sections []whatsapp.Section) {
	b.tasks.Go("send_list", func() {
		ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
		defer cancel()
		if err := b.transport.SendList(ctx, phone, bodyText, buttonText, sections); err != nil {
			log.Printf("[%s] send list failed: %v", whatsapp.MaskPhone(phone), err)
		}
	})
}

func (b *Bot) react(ev Event, emoji string) {
	b.tasks.Go("send_reaction", func() {
		b.transport.SendReaction(context.Background(), ev.From, ev.MessageID, emoji)
	})
}

// sendNow is the synchronous variant used inside already-background flows.
func (b *Bot) sendNow(ctx context.Context, phone, text string) {
	if err := b.transport.SendText(ctx, phone, text); err != nil {
		log.Printf("[%s] send failed: %v", whatsapp.MaskPhone(phone), err)
	}
}

func (b *Bot) sendButtonsNow(ctx context.Context, phone, text string, buttons []whatsapp.Button) {
	if err := b.transport.SendButtons(ctx, phone, text, buttons); err != nil {
		log.Printf("[%s] send buttons failed: %v", whatsapp.MaskPhone(phone), err)
	}
}

func (b *Bot) recordInteraction(phone, document, status string) {
	if b.recorder == nil {
		return
	}
	i := storage.Interaction{
		Time:     time.Now().UTC(),
		Phone:    whatsapp.MaskPhone(phone),
		Document: document,
		Status:   status,
	}
	if err := b.recorder.AppendInteraction(i); err != nil {
		log.Printf("failed to record interaction: %v", err)
	}
}
