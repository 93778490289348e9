package bot

import (
	"math/rand"

	"studybuddy/internal/whatsapp"
)

const botName = "StudyBuddy AI"

const welcomeMessage = `🎓 *Welcome to ` + botName + `!* 🤖✨

I'm your personal AI assistant on WhatsApp, powered by *Google Gemini 2.5*! Think of me as ChatGPT, but right here in your chats. Here's what I can do:

💬 *Ask me anything* — Math, science, coding, advice, general knowledge
📄 *Upload a PDF* → Summarize, quiz, or flashcards
📸 *Send a photo* → I read handwritten notes & whiteboards
🎙️ *Voice note* → Instant transcription & study notes
🔗 *Paste a URL* → I'll summarize any article or webpage
💻 *Code help* → Debug, explain, or write code for you

Just type anything to get started! 🚀`

const helpMessage = `📚 *` + botName + ` — Command Guide*

💬 *Chat* → Ask me literally anything
📄 *PDF* → Upload for summaries, quizzes, flashcards
📸 *Image* → Photo of notes, whiteboard, diagrams
🎙️ *Voice* → Record → transcription + notes
🔗 *URL* → Paste link → get a summary
💻 *Code* → Start with "code:" for code help

*Special Commands:*
• *help* — This guide
• *streak* — Study streak tracker 🔥
• *menu* — Feature menu
• *clear* — Reset chat memory
• *lang* — Change language preference

_Powered by Google Gemini 2.5 Flash_ ⚡`

const menuMessage = `🤖 *` + botName + ` — What can I do?*

💬 Ask me *anything* — I'm like ChatGPT!
📄 Send a *PDF* → Summarize, quiz, flashcards
📸 Send a *photo* → Read notes & whiteboards
🎙️ Send a *voice note* → Transcription + notes
🔗 Paste a *URL* → Summarize any article
💻 Ask about *code* → Debug & explain

⌨️ *Commands:* help | streak | clear | menu | lang`

const featuresMessage = `✨ *` + botName + ` — Features*

💬 *AI Chat* — Ask anything like ChatGPT
📄 *PDF Analysis* — Summarize any document
🧠 *Quiz Mode* — Test knowledge with MCQs
📇 *Flashcards* — Study key concepts
📸 *Image Reader* — Read handwritten notes
🎙️ *Voice Notes* — Transcribe recordings
🔗 *URL Summary* — Summarize any link
💻 *Code Helper* — Debug & explain code
🌍 *8 Languages* — Multi-language support
🔥 *Study Streaks* — Track your progress

_Powered by Google Gemini 2.5 Flash_ ⚡`

const greetingMessage = "👋 Hey there! I'm *" + botName + "* — your personal AI assistant on WhatsApp! 🤖\n\n" +
	"Ask me anything, or tap below to explore:"

var processingMessages = []string{
	"🧠 Thinking... This is a good one!",
	"📖 Diving deep into this... Give me a sec!",
	"✨ Processing with AI magic... Almost there!",
	"🔍 Analyzing... Hang tight!",
	"💡 Working on it... Your answer is coming!",
}

func processingNotice() string {
	return processingMessages[rand.Intn(len(processingMessages))]
}

func exploreButtons() []whatsapp.Button {
	return []whatsapp.Button{
		{ID: "btn_features", Title: "✨ Features"},
		{ID: "btn_help", Title: "❓ Help"},
		{ID: "btn_menu", Title: "📋 Menu"},
	}
}

func taskButtons() []whatsapp.Button {
	return []whatsapp.Button{
		{ID: "task_summarize", Title: "📝 Summarize"},
		{ID: "task_quiz", Title: "🧠 Quiz Me"},
		{ID: "task_flashcard", Title: "📇 Flashcards"},
	}
}

func moreOptionsButtons() []whatsapp.Button {
	return []whatsapp.Button{
		{ID: "task_exam", Title: "❓ Exam Qs"},
		{ID: "task_resume", Title: "💼 Optimize Resume"},
		{ID: "task_quiz", Title: "🧠 Quiz Me"},
	}
}

// languages maps list-row suffixes to the language names stored on sessions.
var languages = []struct {
	Suffix string
	Name   string
	Title  string
	Desc   string
}{
	{"english", "English", "English", "Respond in English"},
	{"hindi", "Hindi", "हिंदी (Hindi)", "हिंदी में जवाब दें"},
	{"spanish", "Spanish", "Español (Spanish)", "Responder en español"},
	{"french", "French", "Français (French)", "Répondre en français"},
	{"german", "German", "Deutsch (German)", "Auf Deutsch antworten"},
	{"chinese", "Chinese", "中文 (Chinese)", "用中文回答"},
	{"japanese", "Japanese", "日本語 (Japanese)", "日本語で回答"},
	{"arabic", "Arabic", "العربية (Arabic)", "الرد بالعربية"},
}

// languageSections builds the list rows with the given row-id prefix
// ("lang_" for the document flow, "langpref_" for the global preference).
func languageSections(prefix string, withDesc bool) []whatsapp.Section {
	rows := make([]whatsapp.Row, 0, len(languages))
	for _, l := range languages {
		row := whatsapp.Row{ID: prefix + l.Suffix, Title: l.Title}
		if withDesc {
			row.Description = l.Desc
		}
		rows = append(rows, row)
	}
	return []whatsapp.Section{{Title: "🌍 Choose Language", Rows: rows}}
}

// languageByReply resolves a list-reply id back to a language name.
func languageByReply(replyID, prefix string) (string, bool) {
	for _, l := range languages {
		if replyID == prefix+l.Suffix {
			return l.Name, true
		}
	}
	return "", false
}
