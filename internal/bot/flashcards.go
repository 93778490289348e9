package bot

import (
	"context"
	"fmt"
	"log"

	"studybuddy/internal/whatsapp"
)

// startFlashcards generates a deck from the active document and shows the
// first card.
func (b *Bot) startFlashcards(phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	chunks, err := b.ensureChunks(ctx, phone)
	if err != nil {
		log.Printf("[%s] flashcard error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ %v", err))
		return
	}

	language := b.sessions.Language(phone)
	cards, err := b.llm.GenerateFlashcards(ctx, chunks, language)
	if err != nil {
		log.Printf("[%s] flashcard error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ Flashcard error: %v", err))
		return
	}
	if len(cards) == 0 {
		b.sendNow(ctx, phone, "❌ Couldn't generate flashcards. Please try again!")
		return
	}

	b.sessions.StartFlashcards(phone, cards)

	b.sendNow(ctx, phone, fmt.Sprintf("📇 *FLASHCARD MODE* ✨\n\n"+
		"I've created %d flashcards from your document.\n"+
		"Try to answer each one before revealing! 🧠", len(cards)))

	b.sendFlashcard(ctx, phone)
}

func (b *Bot) sendFlashcard(ctx context.Context, phone string) {
	card, ok := b.sessions.CurrentFlashcard(phone)
	if !ok {
		return
	}
	current, total, _ := b.sessions.FlashcardProgress(phone)

	text := fmt.Sprintf("📇 *Card %d/%d*\n\n❓ %s\n\n_Think about it, then tap below to reveal..._",
		current, total, card.Front)

	b.sendButtonsNow(ctx, phone, text, []whatsapp.Button{
		{ID: "flash_reveal", Title: "👀 Reveal Answer"},
	})
}

// revealFlashcard shows the back of the current card. On the last card the
// deck is closed here, so a later "next" tap has nothing left to advance.
func (b *Bot) revealFlashcard(phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	card, ok := b.sessions.CurrentFlashcard(phone)
	if !ok {
		return
	}

	b.sessions.RevealFlashcard(phone)
	b.sendNow(ctx, phone, fmt.Sprintf("💡 *Answer:*\n\n%s", card.Back))

	current, total, _ := b.sessions.FlashcardProgress(phone)
	if current < total {
		b.sendButtonsNow(ctx, phone, "Ready for the next one?", []whatsapp.Button{
			{ID: "flash_next", Title: "➡️ Next Card"},
		})
		return
	}

	b.sessions.NextFlashcard(phone)
	b.sendNow(ctx, phone, "🎉 *All flashcards complete!* 🏆\n\n"+
		"Great session! Send a new document or just chat with me! 💬")
	b.sessions.RecordActivity(phone)
	b.sendNow(ctx, phone, b.sessions.StreakMessage(phone))
}

func (b *Bot) nextFlashcard(phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	b.sessions.NextFlashcard(phone)
	b.sendFlashcard(ctx, phone)
}
