package handlers

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/emceep/callrelay/pkg/relay/config"
)

// VoiceHandler answers the telephony provider's inbound call webhook with a
// connect document pointing the call at the relay WebSocket endpoint. This
// path never fails the call setup: whatever host information is available is
// used as-is.
type VoiceHandler struct {
	Config config.Config
}

func (h VoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	host := strings.TrimSpace(h.Config.PublicHost)
	if host == "" {
		host = r.Host
	}
	relayURL := fmt.Sprintf("wss://%s/websocket", host)

	greeting := h.Config.Greeting
	if greeting == "" {
		greeting = config.DefaultGreeting
	}
	lang := h.Config.Language
	if lang == "" {
		lang = config.DefaultLanguage
	}

	var doc bytes.Buffer
	doc.WriteString(xml.Header)
	doc.WriteString("<Response>\n  <Connect>\n")
	fmt.Fprintf(&doc, "    <ConversationRelay url=\"%s\" welcomeGreeting=\"%s\" language=\"%s\" />\n",
		escapeAttr(relayURL), escapeAttr(greeting), escapeAttr(lang))
	doc.WriteString("  </Connect>\n</Response>\n")

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Bytes())
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
