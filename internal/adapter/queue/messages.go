package queue

import (
	"encoding/json"
	"fmt"

	"lendledger/internal/domain/reminder"
)

// schema version of the reminder notice payload
const noticeSchema = 1

type noticeEnvelope struct {
	Schema int             `json:"schema"`
	Notice reminder.Notice `json:"notice"`
}

// EncodeNotice converts a notice to its wire form.
func EncodeNotice(n reminder.Notice) ([]byte, error) {
	return json.Marshal(noticeEnvelope{Schema: noticeSchema, Notice: n})
}

// DecodeNotice parses a delivery body. Unknown schemas and notices without an
// id are rejected so the consumer can drop them.
func DecodeNotice(data []byte) (*reminder.Notice, error) {
	var env noticeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Schema != noticeSchema {
		return nil, fmt.Errorf("unsupported notice schema %d", env.Schema)
	}
	if env.Notice.NoticeID == "" || env.Notice.ReminderID == "" {
		return nil, fmt.Errorf("notice is missing its ids")
	}
	return &env.Notice, nil
}
