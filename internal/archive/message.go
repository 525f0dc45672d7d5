package archive

// Message is one archived chat message.
//
// When HasSpoilers is set, Content carries inline spoiler markers produced by spoiler.Wrap.
type Message struct {
	MessageID   int64  `json:"message_id"`
	Content     string `json:"content"`
	OwnerID     int64  `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
	CreatedAt   string `json:"created_at"`
	HasSpoilers bool   `json:"has_spoilers"`
}
