package models

// ArchivedMessage is the immutable snapshot written to the archive log
// before a message is deleted. ArchivedTS records when the snapshot was
// taken; SentTS preserves the message's original send time.
type ArchivedMessage struct {
	// RecordID uniquely identifies the archive record, not the message.
	RecordID   string `json:"record_id"`
	Chat       string `json:"chat"`
	MessageID  string `json:"message_id"`
	Sender     string `json:"sender,omitempty"`
	Text       string `json:"text"`
	SentTS     int64  `json:"sent_ts"`
	ArchivedTS int64  `json:"archived_ts"`
}
