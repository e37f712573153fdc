package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// QueryKey identifies a cached query: the resource name followed by its filter parameters.
// Two keys are equal when all components are equal.
type QueryKey []string

// Key builds a QueryKey from a resource name and filter parameters.
// Parameters are formatted with their default string form, so Key("proposal", 7)
// and Key("proposal", "7") are the same key.
func Key(resource string, params ...any) QueryKey {
	k := make(QueryKey, 0, len(params)+1)
	k = append(k, resource)
	for _, p := range params {
		switch v := p.(type) {
		case string:
			k = append(k, v)
		case int:
			k = append(k, strconv.Itoa(v))
		case int64:
			k = append(k, strconv.FormatInt(v, 10))
		default:
			k = append(k, fmt.Sprint(v))
		}
	}
	return k
}

// Resource returns the resource name, or "" for an empty key.
func (k QueryKey) Resource() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// Param returns the i-th filter parameter (0 is the first after the resource).
func (k QueryKey) Param(i int) string {
	if i+1 >= len(k) || i < 0 {
		return ""
	}
	return k[i+1]
}

// Equal reports whether both keys have the same components.
func (k QueryKey) Equal(other QueryKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix matches the leading components of k.
func (k QueryKey) HasPrefix(prefix QueryKey) bool {
	if len(prefix) > len(k) {
		return false
	}
	return k[:len(prefix)].Equal(prefix)
}

// String returns an unambiguous encoding used as map and in-flight key.
func (k QueryKey) String() string {
	b, err := json.Marshal([]string(k))
	if err != nil {
		return fmt.Sprintf("%q", []string(k))
	}
	return string(b)
}

func (k QueryKey) clone() QueryKey {
	out := make(QueryKey, len(k))
	copy(out, k)
	return out
}
