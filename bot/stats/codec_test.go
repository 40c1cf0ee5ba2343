package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsDocumentOrder(t *testing.T) {
	raw := `{
  "users": {
    "30": {"conversions": 2, "images": 5},
    "10": {"conversions": 2, "images": 2},
    "20": {"conversions": 7, "images": 9}
  },
  "count": 99,
  "total_conversions": 11,
  "total_images": 16
}`
	s, legacy, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.False(t, legacy)

	var ids []string
	for _, e := range s.Users() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"30", "10", "20"}, ids)
	assert.Equal(t, 3, s.UserCount(), "count is repaired from the users object")
	assert.EqualValues(t, 11, s.TotalConversions())
	assert.EqualValues(t, 16, s.TotalImages())
}

func TestDecodeLegacyList(t *testing.T) {
	s, legacy, err := Decode([]byte(`{"users": [7, "8"], "count": 2}`))
	require.NoError(t, err)
	assert.True(t, legacy)

	u, ok := s.User("7")
	require.True(t, ok)
	assert.Equal(t, UserStats{}, u)
	_, ok = s.User("8")
	assert.True(t, ok)
	assert.Equal(t, 2, s.UserCount())
	assert.Zero(t, s.TotalConversions())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{`{"users":`, `[1,2]`, `{"users": 5}`} {
		_, _, err := Decode([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestEncodeCanonicalShape(t *testing.T) {
	s := NewStore()
	s.EnsureUser("5")
	s.EnsureUser("1")
	require.NoError(t, s.RecordConversion("1", 2))

	data, err := Encode(s)
	require.NoError(t, err)

	want := `{
  "users": {
    "5": {
      "conversions": 0,
      "images": 0
    },
    "1": {
      "conversions": 1,
      "images": 2
    }
  },
  "count": 2,
  "total_conversions": 1,
  "total_images": 2
}
`
	assert.Equal(t, want, string(data))

	back, _, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s.Users(), back.Users())
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
}
