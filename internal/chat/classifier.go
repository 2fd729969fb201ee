// Package chat maps inbound chat text to canned replies.
package chat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the longest message, in code points, that gets routed.
const DefaultMaxLength = 2000

const (
	ReplyGreeting    = "Hello! How can I help you today?"
	ReplyFallback    = "I'm sorry, I didn't understand that. Please try again."
	ReplyUnsupported = "I'm sorry, I can't process special characters. Please try again."
	ReplyProducts    = "We have the following products available:\n1. Product 1\n2. Product 2\n3. Product 3"
	ReplyOrder       = "Your order has been placed successfully. You will receive a confirmation shortly."
	ReplyPayment     = "Payment options:\n1. Credit Card\n2. PayPal\n3. Bitcoin"
	ReplyCommands    = "Commands:\n1. Products - Get information about available products\n2. Order - Place an order\n3. Payment - Get payment information"
)

// onlySymbols matches text made up entirely of characters outside ASCII
// letters, Cyrillic letters, digits and Unicode whitespace. Text that mixes
// symbols with words does not match. RE2's \s is ASCII only, so the class
// also lists \v, the Z categories, the 0x1c-0x1f separators and NEL.
var onlySymbols = regexp.MustCompile(`^[^a-zA-Zа-яА-Я0-9\s\v\p{Z}\x{1c}-\x{1f}\x{85}]+$`)

type route struct {
	match func(string) bool
	reply string
}

func oneOf(words ...string) func(string) bool {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return func(s string) bool {
		_, ok := set[s]
		return ok
	}
}

var isGreeting = oneOf("hi", "hello", "hey")

// routes are checked in order; the first match wins.
var routes = []route{
	{oneOf("1", "products", "product info", "products info"), ReplyProducts},
	{func(s string) bool { return s == "2" || strings.HasPrefix(s, "order") }, ReplyOrder},
	{oneOf("3", "payment", "payment info"), ReplyPayment},
	{oneOf("help", "commands", "info"), ReplyCommands},
}

// Classifier picks a canned reply for a message. The zero value uses DefaultMaxLength.
type Classifier struct {
	MaxLength int
}

func NewClassifier(maxLength int) *Classifier {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Classifier{MaxLength: maxLength}
}

// TooLongReply is returned for messages over the configured limit.
func (c *Classifier) TooLongReply() string {
	return fmt.Sprintf("Message is too long. Please keep it under %d characters.", c.maxLength())
}

// Classify returns the reply for text. It has no side effects.
func (c *Classifier) Classify(text string) string {
	text = strings.TrimSpace(strings.ToLower(text))

	if text == "" {
		return ReplyFallback
	}
	// Greetings win over every other check.
	if isGreeting(text) {
		return ReplyGreeting
	}
	if utf8.RuneCountInString(text) > c.maxLength() {
		return c.TooLongReply()
	}
	if onlySymbols.MatchString(text) {
		return ReplyUnsupported
	}

	for _, r := range routes {
		if r.match(text) {
			return r.reply
		}
	}
	return ReplyFallback
}

func (c *Classifier) maxLength() int {
	if c == nil || c.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return c.MaxLength
}
