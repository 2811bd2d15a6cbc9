package conversation

import (
	"strings"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// Inbound is the canonical form of one user message.
type Inbound struct {
	From       string
	MessageID  string
	Token      string // trimmed canonical token
	Lower      string // lower-cased comparison form
	Actionable bool   // false when the payload carries no reply form at all
}

// Interpret normalizes a raw inbound payload into a single canonical token.
// Resolution order: list-reply id, button-reply id, list-reply title,
// button-reply title, free-text body. Side-effect free.
func Interpret(msg models.InboundMessage) Inbound {
	in := Inbound{From: msg.From, MessageID: msg.ID}

	var raw string
	switch {
	case msg.Interactive != nil && msg.Interactive.ListReply != nil && msg.Interactive.ListReply.ID != "":
		raw = msg.Interactive.ListReply.ID
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil && msg.Interactive.ButtonReply.ID != "":
		raw = msg.Interactive.ButtonReply.ID
	case msg.Interactive != nil && msg.Interactive.ListReply != nil && msg.Interactive.ListReply.Title != "":
		raw = msg.Interactive.ListReply.Title
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil && msg.Interactive.ButtonReply.Title != "":
		raw = msg.Interactive.ButtonReply.Title
	case msg.Text != nil:
		raw = msg.Text.Body
	default:
		return in
	}

	in.Actionable = true
	in.Token = strings.TrimSpace(raw)
	in.Lower = strings.ToLower(in.Token)
	return in
}
