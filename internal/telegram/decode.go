package telegram

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which member of the update union an event came from.
type Kind string

// Known update kinds, one per documented top-level field of the Update
// object, plus KindUnrecognized for fields this build does not know about.
const (
	KindMessage                 Kind = "message"
	KindEditedMessage           Kind = "edited_message"
	KindChannelPost             Kind = "channel_post"
	KindEditedChannelPost       Kind = "edited_channel_post"
	KindBusinessConnection      Kind = "business_connection"
	KindBusinessMessage         Kind = "business_message"
	KindEditedBusinessMessage   Kind = "edited_business_message"
	KindDeletedBusinessMessages Kind = "deleted_business_messages"
	KindMessageReaction         Kind = "message_reaction"
	KindMessageReactionCount    Kind = "message_reaction_count"
	KindInlineQuery             Kind = "inline_query"
	KindChosenInlineResult      Kind = "chosen_inline_result"
	KindCallbackQuery           Kind = "callback_query"
	KindShippingQuery           Kind = "shipping_query"
	KindPreCheckoutQuery        Kind = "pre_checkout_query"
	KindPurchasedPaidMedia      Kind = "purchased_paid_media"
	KindPoll                    Kind = "poll"
	KindPollAnswer              Kind = "poll_answer"
	KindMyChatMember            Kind = "my_chat_member"
	KindChatMember              Kind = "chat_member"
	KindChatJoinRequest         Kind = "chat_join_request"
	KindChatBoost               Kind = "chat_boost"
	KindRemovedChatBoost        Kind = "removed_chat_boost"
	KindUnrecognized            Kind = "unrecognized"
)

// knownKinds lists the union fields in the order the Bot API documents
// them. Classification takes the first field present; the fields are
// mutually exclusive in practice, so the order only matters for malformed
// input.
var knownKinds = []Kind{
	KindMessage,
	KindEditedMessage,
	KindChannelPost,
	KindEditedChannelPost,
	KindBusinessConnection,
	KindBusinessMessage,
	KindEditedBusinessMessage,
	KindDeletedBusinessMessages,
	KindMessageReaction,
	KindMessageReactionCount,
	KindInlineQuery,
	KindChosenInlineResult,
	KindCallbackQuery,
	KindShippingQuery,
	KindPreCheckoutQuery,
	KindPurchasedPaidMedia,
	KindPoll,
	KindPollAnswer,
	KindMyChatMember,
	KindChatMember,
	KindChatJoinRequest,
	KindChatBoost,
	KindRemovedChatBoost,
}

// messageKinds are the kinds whose payload is a full Message object.
var messageKinds = map[Kind]bool{
	KindMessage:               true,
	KindEditedMessage:         true,
	KindChannelPost:           true,
	KindEditedChannelPost:     true,
	KindBusinessMessage:       true,
	KindEditedBusinessMessage: true,
}

// Event is the canonical form of one update. Chat, From and Unix are only
// set when the underlying kind carries them; Raw always holds the complete
// original record for the raw-inspection view.
type Event struct {
	UpdateID int64
	Kind     Kind
	// RawKind is the top-level field name the event was classified from.
	// For unrecognized kinds it names the unknown field, which may be
	// empty when the update carried nothing beyond its id.
	RawKind  string
	Chat     *Chat
	From     *User
	Unix     int64
	Text     string
	ThreadID int64
	Payload  json.RawMessage
	Raw      json.RawMessage
}

// IsMessage reports whether the event carries a message-shaped payload.
func (e *Event) IsMessage() bool {
	return messageKinds[e.Kind]
}

// DecodeError is a single update record that could not be decoded. The raw
// bytes are retained for display.
type DecodeError struct {
	Raw   []byte
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode update record: %v", e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }

// DecodeResult is the outcome for exactly one raw update record. Either
// Event is populated or Err is non-nil, never both.
type DecodeResult struct {
	Event Event
	Err   *DecodeError
}

// DecodeBatch converts a raw getUpdates batch into decode results,
// preserving order and cardinality: len(out) == len(items) always. A record
// that fails to decode yields a DecodeError in its slot without affecting
// its siblings.
func DecodeBatch(items []json.RawMessage) []DecodeResult {
	out := make([]DecodeResult, len(items))
	for i, raw := range items {
		ev, err := decodeRecord(raw)
		if err != nil {
			out[i] = DecodeResult{Err: &DecodeError{Raw: raw, cause: err}}
			continue
		}
		out[i] = DecodeResult{Event: ev}
	}
	return out
}

// payloadProbe extracts the envelope fields shared by most known kinds.
// Fields that a given kind does not carry simply stay zero.
type payloadProbe struct {
	Chat            *Chat  `json:"chat"`
	From            *User  `json:"from"`
	User            *User  `json:"user"`
	Date            int64  `json:"date"`
	Text            string `json:"text"`
	Caption         string `json:"caption"`
	Query           string `json:"query"`
	Data            string `json:"data"`
	MessageThreadID int64  `json:"message_thread_id"`
	// callback_query nests the chat inside the originating message.
	Message *struct {
		Chat Chat  `json:"chat"`
		Date int64 `json:"date"`
	} `json:"message"`
}

func decodeRecord(raw json.RawMessage) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Event{}, err
	}

	idRaw, ok := fields["update_id"]
	if !ok {
		return Event{}, fmt.Errorf("record has no update_id")
	}
	var updateID int64
	if err := json.Unmarshal(idRaw, &updateID); err != nil {
		return Event{}, fmt.Errorf("invalid update_id: %w", err)
	}

	ev := Event{
		UpdateID: updateID,
		Kind:     KindUnrecognized,
		Raw:      raw,
	}

	for _, kind := range knownKinds {
		payload, present := fields[string(kind)]
		if !present {
			continue
		}
		ev.Kind = kind
		ev.RawKind = string(kind)
		ev.Payload = payload
		fillFromPayload(&ev, payload)
		return ev, nil
	}

	// Unknown shape: keep the field name and payload so future update
	// kinds surface in the raw view instead of crashing the decoder.
	for name, payload := range fields {
		if name == "update_id" {
			continue
		}
		ev.RawKind = name
		ev.Payload = payload
		break
	}
	return ev, nil
}

// fillFromPayload pulls chat, sender, timestamp and text out of the kind
// payload. The probe unmarshal is best-effort: a payload that is not an
// object (or carries unexpected field types) leaves the event with just its
// kind and raw body.
func fillFromPayload(ev *Event, payload json.RawMessage) {
	var p payloadProbe
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	ev.Chat = p.Chat
	ev.From = p.From
	ev.Unix = p.Date
	ev.ThreadID = p.MessageThreadID

	switch {
	case p.Text != "":
		ev.Text = p.Text
	case p.Caption != "":
		ev.Text = p.Caption
	case p.Query != "":
		ev.Text = p.Query
	case p.Data != "":
		ev.Text = p.Data
	}

	// poll_answer carries its sender under "user".
	if ev.From == nil && p.User != nil {
		ev.From = p.User
	}
	// callback_query carries no chat of its own; borrow the originating
	// message's chat when the message is still accessible.
	if ev.Chat == nil && p.Message != nil && p.Message.Chat.ID != 0 {
		chat := p.Message.Chat
		ev.Chat = &chat
		if ev.Unix == 0 {
			ev.Unix = p.Message.Date
		}
	}
}
