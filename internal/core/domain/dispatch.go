package domain

type DispatchResult struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"message_id,omitempty"`
}

type EmailAttachment struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

type OutboundEmail struct {
	FromName    string
	To          []string
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Attachments []EmailAttachment
}

type InboundAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// InboundMessage is a parsed e-mail received on one of the inbound aliases.
type InboundMessage struct {
	MessageID   string
	From        string
	Recipients  []string
	Subject     string
	HTML        string
	Text        string
	Attachments []InboundAttachment
}
