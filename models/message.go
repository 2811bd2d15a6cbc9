package models

// WebhookPayload is the WhatsApp Cloud API webhook envelope.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
	Contacts         []Contact        `json:"contacts"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// InboundMessage is a single user message from the webhook. At most one of
// Text or Interactive is populated.
type InboundMessage struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type        string    `json:"type"`
	ButtonReply *ReplyRef `json:"button_reply,omitempty"`
	ListReply   *ReplyRef `json:"list_reply,omitempty"`
}

type ReplyRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ReplyKind selects the outbound presentation shape.
type ReplyKind string

const (
	ReplyText    ReplyKind = "text"
	ReplyButtons ReplyKind = "buttons" // interactive, at most 3 options
	ReplyList    ReplyKind = "list"    // interactive, enumerated rows
)

// Option is one selectable button or list row.
type Option struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Reply is what the engine decides to say next. The messaging layer owns
// how it is transmitted; the engine owns shape and content.
type Reply struct {
	Kind      ReplyKind `json:"kind"`
	Body      string    `json:"body"`
	Options   []Option  `json:"options,omitempty"`
	ListTitle string    `json:"listTitle,omitempty"` // list button label
}

// TextReply builds a plain text reply.
func TextReply(body string) Reply {
	return Reply{Kind: ReplyText, Body: body}
}

// ButtonsReply builds a short interactive button reply.
func ButtonsReply(body string, opts ...Option) Reply {
	return Reply{Kind: ReplyButtons, Body: body, Options: opts}
}

// ListReply builds an enumerated list reply.
func ListReply(body, listTitle string, opts []Option) Reply {
	return Reply{Kind: ReplyList, Body: body, Options: opts, ListTitle: listTitle}
}
