package message

// Inbound is a chat message received through the messaging webhook.
// It is built per request and never persisted.
type Inbound struct {
	From string // sender identifier (phone number)
	Body string
	ID   string // provider message id
}

// Outbound is a reply to be delivered through the messaging provider
type Outbound struct {
	To   string
	Text string
}
