package messaging

import (
	"sort"
	"time"

	"github.com/maharatedu/platform/storage/docstore"
)

// Message is one direct message between two users. Participants always
// holds both user ids sorted, so a conversation groups consistently no
// matter which side sent first.
type Message struct {
	ID            string          `json:"id"`
	Participants  []string        `json:"participants"`
	SenderID      string          `json:"sender_id"`
	ReceiverID    string          `json:"receiver_id"`
	Body          string          `json:"message"`
	Timestamp     time.Time       `json:"timestamp"`
	ReadBy        map[string]bool `json:"read_by"`
	IsMassMessage bool            `json:"is_mass_message,omitempty"`
}

// UnreadBy reports whether the message is addressed to the user and not
// yet read by them.
func (m Message) UnreadBy(userID string) bool {
	return m.ReceiverID == userID && !m.ReadBy[userID]
}

// UnreadCount counts messages addressed to the user that they have not read.
func UnreadCount(userID string, msgs []Message) int {
	var count int
	for _, m := range msgs {
		if m.UnreadBy(userID) {
			count++
		}
	}
	return count
}

// Conversation filters a user's message set down to the thread with one peer.
func Conversation(msgs []Message, peerID string) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		for _, p := range m.Participants {
			if p == peerID {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Notifications returns the user's unread messages, newest first.
func Notifications(userID string, msgs []Message) []Message {
	out := make([]Message, 0)
	for _, m := range msgs {
		if m.UnreadBy(userID) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func participants(a, b string) []string {
	p := []string{a, b}
	sort.Strings(p)
	return p
}

// Decode maps a raw message document onto a Message.
func Decode(d docstore.Doc) Message {
	return Message{
		ID:            d.ID,
		Participants:  docstore.StringSlice(d.Data, "participants"),
		SenderID:      docstore.String(d.Data, "senderId"),
		ReceiverID:    docstore.String(d.Data, "receiverId"),
		Body:          docstore.String(d.Data, "message"),
		Timestamp:     docstore.Time(d.Data, "timestamp"),
		ReadBy:        docstore.BoolMap(d.Data, "readBy"),
		IsMassMessage: docstore.Bool(d.Data, "isMassMessage"),
	}
}

func decodeAll(docs []docstore.Doc) []Message {
	msgs := make([]Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, Decode(d))
	}
	return msgs
}
