package domain

import "strings"

// Classification is the outcome of inspecting an inbound message.
type Classification int

const (
	// HandlerReply means the message is treated as a handler answering existing leads.
	HandlerReply Classification = iota
	// NewInquiry means the message starts a new lead.
	NewInquiry
)

func (c Classification) String() string {
	if c == NewInquiry {
		return "new_lead"
	}
	return "handler_reply"
}

// Classifier decides between a new inquiry and a handler reply by
// case-insensitive substring match against trade keywords.
type Classifier struct {
	keywords []string
}

// NewClassifier lowercases and keeps the non-blank keywords.
func NewClassifier(keywords []string) *Classifier {
	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			kws = append(kws, kw)
		}
	}
	return &Classifier{keywords: kws}
}

// Classify returns NewInquiry if the text contains any keyword.
func (c *Classifier) Classify(text string) Classification {
	if _, ok := c.Match(text); ok {
		return NewInquiry
	}
	return HandlerReply
}

// Match returns the first keyword found in text.
func (c *Classifier) Match(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lowered, kw) {
			return kw, true
		}
	}
	return "", false
}

// Keywords returns a copy of the configured keywords.
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}
