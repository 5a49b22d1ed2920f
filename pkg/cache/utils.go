package cache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key joins parts into a colon separated cache key.
func Key(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case *string:
		return []byte(*v), nil
	}
	return json.Marshal(value)
}

func decode(data []byte, dest interface{}) error {
	if s, ok := dest.(*string); ok {
		*s = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}
