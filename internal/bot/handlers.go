package bot

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"studybuddy/internal/llm"
	"studybuddy/internal/whatsapp"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// command is the closed set of text keywords handled before any flow.
type command int

const (
	cmdNone command = iota
	cmdGreeting
	cmdHelp
	cmdStreak
	cmdUsage
	cmdClear
	cmdMenu
	cmdLang
)

func parseCommand(text string) command {
	switch strings.ToLower(text) {
	case "hi", "hello", "hey", "start":
		return cmdGreeting
	case "help", "/help", "?":
		return cmdHelp
	case "streak", "/streak":
		return cmdStreak
	case "usage", "stats", "/usage":
		return cmdUsage
	case "clear", "reset", "/clear":
		return cmdClear
	case "menu", "/menu":
		return cmdMenu
	case "lang", "language", "/lang":
		return cmdLang
	default:
		return cmdNone
	}
}

func (b *Bot) handleText(ev Event) {
	phone := ev.From
	text := ev.Text

	switch parseCommand(text) {
	case cmdGreeting:
		b.send(phone, greetingMessage)
		b.sendButtons(phone, "What would you like to do?", exploreButtons())
		return
	case cmdHelp:
		b.send(phone, helpMessage)
		return
	case cmdStreak:
		b.send(phone, b.sessions.StreakMessage(phone))
		return
	case cmdUsage:
		b.send(phone, b.quota.UsageStats())
		return
	case cmdClear:
		b.sessions.ClearHistory(phone)
		b.send(phone, "🧹 Chat memory cleared! Starting fresh. ✨")
		return
	case cmdMenu:
		b.send(phone, menuMessage)
		return
	case cmdLang:
		b.sendList(phone, "🌍 Choose your preferred response language:", "Select Language",
			languageSections("langpref_", false))
		return
	}

	// The first URL wins and bypasses chat context entirely.
	if url := urlPattern.FindString(text); url != "" {
		b.send(phone, "🔗 Detected a link! Fetching and summarizing... ✨")
		b.tasks.Go("process_url", func() { b.processURL(phone, url) })
		return
	}

	b.tasks.Go("process_chat", func() { b.processChat(phone, text) })
}

// processChat runs the free-form chat flow with conversation memory.
func (b *Bot) processChat(phone, userMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	history := b.sessions.History(phone)
	language := b.sessions.Language(phone)

	response, err := b.llm.ChatWithMemory(ctx, userMessage, history, language)
	if err != nil {
		log.Printf("[%s] chat error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ Something went wrong: %v", err))
		return
	}

	b.sessions.AddMessage(phone, llm.RoleUser, userMessage)
	b.sessions.AddMessage(phone, llm.RoleAssistant, response)

	b.sendNow(ctx, phone, response)
	b.sessions.RecordActivity(phone)
}

// processURL summarizes a linked page. The result lands in history so the
// user can follow up on it, but the page itself never enters chat context.
func (b *Bot) processURL(phone, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	language := b.sessions.Language(phone)
	result, err := b.llm.SummarizeURL(ctx, url, language)
	if err != nil {
		log.Printf("[%s] url error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ Error summarizing URL: %v", err))
		return
	}

	b.sendNow(ctx, phone, result)
	b.sessions.AddMessage(phone, llm.RoleUser, "Summarize: "+url)
	b.sessions.AddMessage(phone, llm.RoleAssistant, result)
	b.sessions.RecordActivity(phone)
}

func (b *Bot) handleImage(ev Event) {
	b.send(ev.From, "📸 Got your image! Analyzing with AI vision... 🔍")
	b.tasks.Go("process_image", func() { b.processMedia(ev.From, ev.MediaID, llm.MediaImage, "jpg") })
}

func (b *Bot) handleAudio(ev Event) {
	b.send(ev.From, "🎙️ Got your voice note! Transcribing and analyzing... ✍️")
	b.tasks.Go("process_audio", func() { b.processMedia(ev.From, ev.MediaID, llm.MediaAudio, "ogg") })
}

// processMedia downloads an image or voice note, hands it to the model and
// always cleans the file up afterwards.
func (b *Bot) processMedia(phone, mediaID string, kind llm.MediaKind, extension string) {
	ctx, cancel := context.WithTimeout(context.Background(), flowTimeout)
	defer cancel()

	filePath, err := b.transport.DownloadMedia(ctx, mediaID, extension)
	if err != nil {
		log.Printf("[%s] media download error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, "❌ Couldn't download that. Please try again!")
		return
	}
	defer b.docs.Remove(filePath)

	language := b.sessions.Language(phone)
	result, err := b.llm.AnalyzeMedia(ctx, filePath, kind, language)
	if err != nil {
		log.Printf("[%s] media analysis error: %v", whatsapp.MaskPhone(phone), err)
		b.sendNow(ctx, phone, fmt.Sprintf("❌ Error: %v", err))
		return
	}

	b.sendNow(ctx, phone, result)
	b.sessions.RecordActivity(phone)
}

func (b *Bot) handleButtonReply(ev Event) {
	phone := ev.From

	switch ev.ReplyID {
	case "btn_features":
		b.send(phone, featuresMessage)
		return
	case "btn_help":
		b.send(phone, helpMessage)
		return
	case "btn_menu":
		b.send(phone, menuMessage)
		return
	case "flash_reveal":
		b.tasks.Go("flash_reveal", func() { b.revealFlashcard(phone) })
		return
	case "flash_next":
		b.tasks.Go("flash_next", func() { b.nextFlashcard(phone) })
		return
	}

	if letter, ok := strings.CutPrefix(ev.ReplyID, "quiz_"); ok {
		b.tasks.Go("quiz_answer", func() { b.answerQuiz(phone, strings.ToUpper(letter)) })
		return
	}

	if task, ok := parseTaskButton(ev.ReplyID); ok {
		b.handleTaskSelection(phone, task)
		return
	}
	// Unknown button id, stale client state most likely.
}

func (b *Bot) handleListReply(ev Event) {
	phone := ev.From

	if language, ok := languageByReply(ev.ReplyID, "langpref_"); ok {
		b.sessions.SetLanguage(phone, language)
		b.send(phone, fmt.Sprintf("🌍 Language set to *%s*! I'll respond in %s from now on. ✅", language, language))
		return
	}

	if language, ok := languageByReply(ev.ReplyID, "lang_"); ok {
		b.sessions.SetLanguage(phone, language)
		_, filename := b.sessions.Document(phone)
		b.sendButtons(phone,
			fmt.Sprintf("🌍 Language: *%s* ✅\n\nWhat should I do with *%s*?", language, filename),
			taskButtons())
		return
	}
}

// taskKind is the closed set of things a task button can start. Document
// tasks carry the matching llm.Task; quiz and flashcards are their own flows.
type taskKind int

const (
	taskSummarize taskKind = iota
	taskExam
	taskResume
	taskQuiz
	taskFlashcards
)

func parseTaskButton(replyID string) (taskKind, bool) {
	switch replyID {
	case "task_summarize":
		return taskSummarize, true
	case "task_exam":
		return taskExam, true
	case "task_resume":
		return taskResume, true
	case "task_quiz":
		return taskQuiz, true
	case "task_flashcard":
		return taskFlashcards, true
	default:
		return 0, false
	}
}
