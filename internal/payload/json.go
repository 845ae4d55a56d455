package payload

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
)

// jsonAPI keeps numbers as json.Number so integers beyond 2^53 are parsed
// once, by strconv, instead of through an intermediate float64.
var jsonAPI = sonic.Config{
	UseNumber: true,
}.Froze()

// decodeJSON parses s as a single JSON value. Trailing non-whitespace fails.
func decodeJSON(s string) (Node, bool) {
	var v interface{}
	if err := jsonAPI.UnmarshalFromString(s, &v); err != nil {
		return nil, false
	}
	return fromJSON(v), true
}

func fromJSON(v interface{}) Node {
	switch t := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(t)
	case json.Number:
		// Out of range literals come back as ±Inf and are dropped later.
		f, _ := strconv.ParseFloat(string(t), 64)
		return Number(f)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []interface{}:
		arr := make(Array, len(t))
		for i, e := range t {
			arr[i] = fromJSON(e)
		}
		return arr
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Map, len(keys))
		for i, k := range keys {
			m[i] = Member{Key: KeySegment(k), Value: fromJSON(t[k])}
		}
		return m
	default:
		return Null{}
	}
}
