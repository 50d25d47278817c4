package editsync

// Buffer is the reference model of the surface side: full text plus a
// selection measured in runes. The browser client mirrors these
// semantics against its own text, so offsets never cross the wire.
// Protocol tests exercise the host session against this implementation.
type Buffer struct {
	text  []rune
	start int
	end   int
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Text returns the full current text.
func (b *Buffer) Text() string {
	return string(b.text)
}

// Selection returns the current selection bounds; start == end means a
// collapsed cursor.
func (b *Buffer) Selection() (start, end int) {
	return b.start, b.end
}

// Select sets the selection, clamped to the text bounds.
func (b *Buffer) Select(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(b.text) {
		end = len(b.text)
	}
	if start > end {
		start = end
	}
	b.start, b.end = start, end
}

// Apply executes one host command. The returned message, when ok, is the
// update notification the surface answers with; set-content is never
// echoed back.
func (b *Buffer) Apply(msg Message) (Message, bool) {
	switch msg.Type {
	case TypeSetContent:
		b.text = []rune(msg.Value)
		b.start, b.end = len(b.text), len(b.text)
		return Message{}, false
	case TypeInsertText:
		b.insert(msg.Text)
		return NewUpdateMessage(b.Text()), true
	case TypeWrapSelection:
		b.wrap(msg.Prefix, msg.Suffix, msg.DefaultText)
		return NewUpdateMessage(b.Text()), true
	}
	return Message{}, false
}

// insert replaces the selection with text and collapses the cursor to the
// end of the insertion.
func (b *Buffer) insert(text string) {
	ins := []rune(text)
	tail := b.text[b.end:]
	out := append(b.text[:b.start:b.start], ins...)
	caret := len(out)
	b.text = append(out, tail...)
	b.start, b.end = caret, caret
}

// wrap surrounds the selection (or defaultText when it is empty) with
// prefix and suffix, then selects exactly the inner content.
func (b *Buffer) wrap(prefix, suffix, defaultText string) {
	inner := string(b.text[b.start:b.end])
	if inner == "" {
		inner = defaultText
	}
	tail := b.text[b.end:]
	out := append(b.text[:b.start:b.start], []rune(prefix)...)
	selStart := len(out)
	out = append(out, []rune(inner)...)
	selEnd := len(out)
	out = append(out, []rune(suffix)...)
	b.text = append(out, tail...)
	b.start, b.end = selStart, selEnd
}
