package archive

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// record is the decode side of the stored JSON object. Pointer fields tell a
// missing key apart from a zero value.
type record struct {
	MessageID   *int64  `json:"message_id" validate:"required"`
	Content     *string `json:"content" validate:"required"`
	OwnerID     *int64  `json:"owner_id" validate:"required"`
	OwnerName   *string `json:"owner_name" validate:"required"`
	CreatedAt   *string `json:"created_at" validate:"required"`
	HasSpoilers *bool   `json:"has_spoilers"`
}

func encodeRecord(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message %d: %w", msg.MessageID, err)
	}
	return data, nil
}

// decodeRecord parses one stored entry. Unknown keys are ignored and a missing
// has_spoilers reads as false.
func decodeRecord(data []byte) (Message, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if err := validate.Struct(r); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}

	msg := Message{
		MessageID: *r.MessageID,
		Content:   *r.Content,
		OwnerID:   *r.OwnerID,
		OwnerName: *r.OwnerName,
		CreatedAt: *r.CreatedAt,
	}
	if r.HasSpoilers != nil {
		msg.HasSpoilers = *r.HasSpoilers
	}
	return msg, nil
}
