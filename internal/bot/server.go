package bot

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"studybuddy/internal/whatsapp"
)

// NewRouter mounts the webhook endpoints. POST deliveries are acknowledged
// with 200 regardless of processing outcome; Meta retries anything else and
// duplicate retries are worse than a dropped event here.
func NewRouter(b *Bot, verifyToken, appSecret, environment string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]string{"status": "running", "environment": environment})
	})

	// Meta's one-time subscription handshake.
	r.Get("/webhook", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if !whatsapp.VerifyToken(q.Get("hub.mode"), q.Get("hub.verify_token"), verifyToken) {
			log.Printf("webhook verification failed")
			http.Error(w, "invalid verify token", http.StatusForbidden)
			return
		}
		log.Printf("webhook verified")
		w.Write([]byte(q.Get("hub.challenge")))
	})

	r.Post("/webhook", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, 1024*1024))
		if err != nil {
			writeJSON(w, map[string]string{"status": "ok"})
			return
		}

		if !whatsapp.VerifySignature(appSecret, body, req.Header.Get("X-Hub-Signature-256")) {
			log.Printf("webhook signature mismatch")
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}

		ev, ok, err := ParseWebhook(body)
		if err != nil {
			log.Printf("unroutable webhook event: %v", err)
		} else if ok {
			b.Handle(ev)
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
