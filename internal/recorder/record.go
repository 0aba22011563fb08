package recorder

import (
	"encoding/json"
	"fmt"
)

// Kind is the interaction type of a record.
type Kind string

const (
	KindClick  Kind = "click"
	KindKeyUp  Kind = "keyup"
	KindScroll Kind = "scroll"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindClick, KindKeyUp, KindScroll:
		return k, nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Record is one captured interaction. Timestamp is milliseconds since the
// Unix epoch. Records are values and are never changed after Append.
type Record struct {
	Timestamp int64
	Kind      Kind
	Payload   Payload
}

// Payload is the kind-specific part of a record.
type Payload interface {
	Kind() Kind
}

// Channel pairs a raw id/class attribute with the value resolved through it.
// A nil Resolved means undefined.
type Channel struct {
	Raw      string
	Resolved *string
}

// Click is the payload of a click record. Resolved text is only set when the
// target is a select.
type Click struct {
	X, Y      int
	IsSelect  bool
	ID        Channel
	ClassName Channel
	ClassList Channel
}

// KeyUp is the payload of a keyup record.
type KeyUp struct {
	Key       string
	Shift     bool
	ID        Channel
	ClassName Channel
	ClassList Channel
}

// Scroll is the payload of a scroll record.
type Scroll struct {
	X, Y int
}

func (Click) Kind() Kind  { return KindClick }
func (KeyUp) Kind() Kind  { return KindKeyUp }
func (Scroll) Kind() Kind { return KindScroll }

// MarshalJSON encodes the record as [timestamp, kind, payload].
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Timestamp, r.Kind, r.Payload})
}

// UnmarshalJSON decodes the tuple form written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("decode record: want 3 elements, got %d", len(parts))
	}

	var ts int64
	if err := json.Unmarshal(parts[0], &ts); err != nil {
		return fmt.Errorf("decode record timestamp: %w", err)
	}
	var name string
	if err := json.Unmarshal(parts[1], &name); err != nil {
		return fmt.Errorf("decode record kind: %w", err)
	}
	kind, err := ParseKind(name)
	if err != nil {
		return err
	}

	payload, err := DecodePayload(kind, parts[2])
	if err != nil {
		return err
	}

	*r = Record{Timestamp: ts, Kind: kind, Payload: payload}
	return nil
}

// DecodePayload decodes a payload tuple of the given kind.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	switch kind {
	case KindClick:
		var c Click
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case KindKeyUp:
		var k KeyUp
		if err := json.Unmarshal(data, &k); err != nil {
			return nil, err
		}
		return k, nil
	case KindScroll:
		var s Scroll
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", kind)
}

// MarshalJSON encodes [raw, resolved] with null for an undefined value.
func (c Channel) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Raw, c.Resolved})
}

func (c *Channel) UnmarshalJSON(data []byte) error {
	var pair []*string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode channel: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode channel: want 2 elements, got %d", len(pair))
	}
	c.Raw = ""
	if pair[0] != nil {
		c.Raw = *pair[0]
	}
	c.Resolved = pair[1]
	return nil
}

func (c Click) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{[2]int{c.X, c.Y}, c.IsSelect, c.ID, c.ClassName, c.ClassList})
}

func (c *Click) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode click: %w", err)
	}
	// Older traces carry only the coordinates.
	if len(parts) != 5 && len(parts) != 2 {
		return fmt.Errorf("decode click: want 5 elements, got %d", len(parts))
	}
	var pos [2]int
	if len(parts) == 2 {
		if err := json.Unmarshal(data, &pos); err != nil {
			return fmt.Errorf("decode click position: %w", err)
		}
		c.X, c.Y = pos[0], pos[1]
		return nil
	}
	if err := json.Unmarshal(parts[0], &pos); err != nil {
		return fmt.Errorf("decode click position: %w", err)
	}
	c.X, c.Y = pos[0], pos[1]
	if err := json.Unmarshal(parts[1], &c.IsSelect); err != nil {
		return fmt.Errorf("decode click select flag: %w", err)
	}
	return decodeChannels(parts[2:], &c.ID, &c.ClassName, &c.ClassList)
}

func (k KeyUp) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{k.Key, k.Shift, k.ID, k.ClassName, k.ClassList})
}

func (k *KeyUp) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode keyup: %w", err)
	}
	if len(parts) != 5 {
		return fmt.Errorf("decode keyup: want 5 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &k.Key); err != nil {
		return fmt.Errorf("decode keyup key: %w", err)
	}
	if err := json.Unmarshal(parts[1], &k.Shift); err != nil {
		return fmt.Errorf("decode keyup shift: %w", err)
	}
	return decodeChannels(parts[2:], &k.ID, &k.ClassName, &k.ClassList)
}

func (s Scroll) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.X, s.Y})
}

func (s *Scroll) UnmarshalJSON(data []byte) error {
	var pos [2]int
	if err := json.Unmarshal(data, &pos); err != nil {
		return fmt.Errorf("decode scroll: %w", err)
	}
	s.X, s.Y = pos[0], pos[1]
	return nil
}

func decodeChannels(parts []json.RawMessage, dst ...*Channel) error {
	for i, c := range dst {
		if err := json.Unmarshal(parts[i], c); err != nil {
			return err
		}
	}
	return nil
}

// StringPtr returns a pointer to s, for building resolved values.
func StringPtr(s string) *string { return &s }
