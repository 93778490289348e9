package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"studybuddy/internal/whatsapp"
)

// startQuiz generates questions from the active document and asks the first
// one.
func (b *Bot) startQuiz(phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	chunks, err := b.ensureChunks(ctx, phone)
	if err != nil {
		log.Printf("[%s] quiz error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ %v", err))
		return
	}

	language := b.sessions.Language(phone)
	questions, err := b.llm.GenerateQuiz(ctx, chunks, language)
	if err != nil {
		log.Printf("[%s] quiz error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ Quiz error: %v", err))
		return
	}
	if len(questions) == 0 {
		b.sendNow(ctx, phone, "❌ Couldn't generate quiz. Please try again!")
		return
	}

	b.sessions.StartQuiz(phone, questions)

	b.sendNow(ctx, phone, fmt.Sprintf("🧠 *QUIZ TIME!* 🎯\n\n"+
		"I've prepared %d questions from your document.\n"+
		"Let's test your knowledge! Good luck! 🍀", len(questions)))

	b.sendQuizQuestion(ctx, phone)
}

func (b *Bot) sendQuizQuestion(ctx context.Context, phone string) {
	q, ok := b.sessions.CurrentQuestion(phone)
	if !ok {
		return
	}
	current, total := b.sessions.QuizProgress(phone)

	text := fmt.Sprintf("📋 *Question %d/%d*\n\n%s\n\n*A.* %s\n*B.* %s\n*C.* %s",
		current, total, q.Question, q.A, q.B, q.C)

	b.sendButtonsNow(ctx, phone, text, []whatsapp.Button{
		{ID: "quiz_a", Title: "A"},
		{ID: "quiz_b", Title: "B"},
		{ID: "quiz_c", Title: "C"},
	})
}

// answerQuiz grades one tap, then either asks the next question or closes the
// quiz with the score, grade band and streak.
func (b *Bot) answerQuiz(phone, letter string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	correct, correctLetter, isLast := b.sessions.AnswerQuiz(phone, letter)
	if correctLetter == "" {
		// Tap for a quiz that is not running anymore.
		return
	}

	feedback := fmt.Sprintf("❌ *Wrong!* The correct answer was *%s*.", correctLetter)
	if correct {
		feedback = "✅ *Correct!* Great job! 🎉"
	}
	b.sendNow(ctx, phone, feedback)

	if !isLast {
		time.Sleep(quizNextDelay)
		b.sendQuizQuestion(ctx, phone)
		return
	}

	score, total, pct := b.sessions.QuizResults(phone)

	var grade string
	switch {
	case pct >= 80:
		grade = "🏆 *A+ — Outstanding!*"
	case pct >= 60:
		grade = "👍 *B — Good job!*"
	case pct >= 40:
		grade = "📚 *C — Keep studying!*"
	default:
		grade = "🔄 *Try again!*"
	}

	star := "💡"
	if pct >= 80 {
		star = "🌟"
	}
	b.sendNow(ctx, phone, fmt.Sprintf("\n%s *QUIZ COMPLETE!*\n\n📊 *Score:* %d/%d (%d%%)\n%s\n\n%s",
		star, score, total, pct, grade, strings.Repeat("🔥 ", min(score, 5))))

	b.sessions.RecordActivity(phone)
	b.sendNow(ctx, phone, b.sessions.StreakMessage(phone))
}
