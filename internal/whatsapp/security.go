package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyToken checks the hub challenge handshake Meta performs when the
// webhook is registered.
func VerifyToken(mode, token, expected string) bool {
	return mode == "subscribe" && token != "" && token == expected
}

// VerifySignature validates the X-Hub-Signature-256 header Meta attaches to
// every webhook delivery. An empty appSecret disables the check (dev mode).
func VerifySignature(appSecret string, payload []byte, signature string) bool {
	if appSecret == "" {
		return true
	}
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, prefix)))
}

// MaskPhone hides the middle of a phone number for logs: 919876543210 becomes
// 91****3210.
func MaskPhone(phone string) string {
	if len(phone) <= 6 {
		return "****"
	}
	return phone[:2] + "****" + phone[len(phone)-4:]
}
