// Package editsync keeps one isolated editing surface consistent with
// host-held shard body text. The surface is reachable only through
// tagged messages; the host never reads its internal state directly.
//
//   - protocol.go: the message vocabulary and JSON envelope
//   - session.go: the host-side state machine and echo suppression
//   - buffer.go: the reference surface model mirrored by the browser client
package editsync

import "encoding/json"

// Message tags. The surface sends ready, update and open-reference; the
// host sends set-content, insert-text and wrap-selection.
const (
	TypeReady         = "ready"
	TypeUpdate        = "update"
	TypeOpenReference = "open-reference"
	TypeSetContent    = "set-content"
	TypeInsertText    = "insert-text"
	TypeWrapSelection = "wrap-selection"
)

// Message is the tagged envelope carried on the surface channel. Only the
// fields relevant to a tag are populated.
type Message struct {
	Type        string `json:"type"`
	Value       string `json:"value,omitempty"`
	Text        string `json:"text,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
	Suffix      string `json:"suffix,omitempty"`
	DefaultText string `json:"defaultText,omitempty"`
	ID          string `json:"id,omitempty"`
}

// NewReadyMessage signals that the surface's editable element exists and
// its message listener is attached.
func NewReadyMessage() Message {
	return Message{Type: TypeReady}
}

// NewUpdateMessage carries the surface's full current text after an edit.
func NewUpdateMessage(value string) Message {
	return Message{Type: TypeUpdate, Value: value}
}

// NewOpenReferenceMessage reports a click on a cross-shard link anchor.
func NewOpenReferenceMessage(id string) Message {
	return Message{Type: TypeOpenReference, ID: id}
}

// NewSetContentMessage replaces the surface's full text.
func NewSetContentMessage(value string) Message {
	return Message{Type: TypeSetContent, Value: value}
}

// NewInsertTextMessage inserts literal text at the surface's cursor and
// moves the cursor past it.
func NewInsertTextMessage(text string) Message {
	return Message{Type: TypeInsertText, Text: text}
}

// NewWrapSelectionMessage wraps the surface's selection, or defaultText
// when the selection is empty, in prefix and suffix, then selects exactly
// the wrapped inner content.
func NewWrapSelectionMessage(prefix, suffix, defaultText string) Message {
	return Message{Type: TypeWrapSelection, Prefix: prefix, Suffix: suffix, DefaultText: defaultText}
}

// Decode parses one envelope from its wire form.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
