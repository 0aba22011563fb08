package recorder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJSON_KeyUp(t *testing.T) {
	rec := Record{
		Timestamp: 42,
		Kind:      KindKeyUp,
		Payload: KeyUp{
			Key:       "a",
			Shift:     false,
			ID:        Channel{Raw: "q", Resolved: StringPtr("abc")},
			ClassName: Channel{Raw: "search"},
			ClassList: Channel{Raw: "search"},
		},
	}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `[42,"keyup",["a",false,["q","abc"],["search",null],["search",null]]]`, string(raw))

	var back Record
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, rec, back)
}

func TestRecordJSON_DecodesLegacyClick(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`[7,"click",[120,45]]`), &rec))

	assert.Equal(t, Click{X: 120, Y: 45}, rec.Payload)
}

func TestRecordJSON_RejectsUnknownKind(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`[7,"hover",[1,2]]`), &rec)
	assert.Error(t, err)
}

func TestRecordJSON_RejectsShortTuple(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`[7,"scroll"]`), &rec)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"click", "keyup", "scroll"} {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, Kind(name), k)
	}
	_, err := ParseKind("mousemove")
	assert.Error(t, err)
}

func TestSelector(t *testing.T) {
	tests := []struct {
		kind     AttrKind
		raw      string
		expected string
	}{
		{AttrID, "login", "#login"},
		{AttrClassName, "btn primary", ".btn primary"},
		{AttrClassList, "btn  primary", ".btn.primary"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, Selector(tc.kind, tc.raw), "%s %q", tc.kind, tc.raw)
	}
}
