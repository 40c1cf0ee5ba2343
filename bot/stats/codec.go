package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

type recordHeader struct {
	Count            int   `json:"count"`
	TotalConversions int64 `json:"total_conversions"`
	TotalImages      int64 `json:"total_images"`
}

// Encode renders the canonical record with users in insertion order.
func Encode(s *Store) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteString(`{"users":{`)
	for i, id := range s.order {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.users[id])
		if err != nil {
			return nil, err
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(val)
	}
	compact.WriteString(`},`)

	header, err := json.Marshal(recordHeader{
		Count:            len(s.order),
		TotalConversions: s.totalConversions,
		TotalImages:      s.totalImages,
	})
	if err != nil {
		return nil, err
	}
	compact.Write(header[1:])

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Decode parses a record. A "users" list of ids (the legacy shape) is upgraded
// to zero-valued entries; legacy reports whether that happened.
func Decode(data []byte) (s *Store, legacy bool, err error) {
	s = NewStore()
	if len(bytes.TrimSpace(data)) == 0 {
		return s, false, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, false, errors.New("invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, false, fmt.Errorf("record must be an object, got %s", root.Type)
	}

	users := root.Get("users")
	switch {
	case !users.Exists() || users.Type == gjson.Null:
	case users.IsArray():
		legacy = true
		users.ForEach(func(_, v gjson.Result) bool {
			if id := v.String(); id != "" {
				s.EnsureUser(id)
			}
			return true
		})
	case users.IsObject():
		users.ForEach(func(k, v gjson.Result) bool {
			s.put(k.String(), UserStats{
				Conversions: v.Get("conversions").Int(),
				Images:      v.Get("images").Int(),
			})
			return true
		})
	default:
		return nil, false, fmt.Errorf("unexpected users field of type %s", users.Type)
	}

	s.totalConversions = root.Get("total_conversions").Int()
	s.totalImages = root.Get("total_images").Int()
	s.count = len(s.order)
	return s, legacy, nil
}
