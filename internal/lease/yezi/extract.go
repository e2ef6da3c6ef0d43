package yezi

import (
	"regexp"
	"sort"
	"strconv"
)

var codePattern = regexp.MustCompile(`\b(\d{4,6})\b`)

// messageKeys are checked in order on every object in a "data" list.
var messageKeys = []string{"sms", "message", "content", "sms_message", "modle"}

func notArrived(msg string) bool {
	switch msg {
	case "not_receive", "retry", "短信还未到达,请继续获取", "短信还未到达，请继续获取":
		return true
	}
	return false
}

// ExtractCode finds the first 4 to 6 digit code in a get_message reply. The
// top-level "code" string wins; otherwise texts under "data" are scanned in
// order: list items that are strings, the known keys of list items that are
// objects, or the string values of a "data" object in key order.
func ExtractCode(resp map[string]any) string {
	if s, ok := resp["code"].(string); ok {
		if m := codePattern.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	for _, t := range texts(resp["data"]) {
		if m := codePattern.FindStringSubmatch(t); m != nil {
			return m[1]
		}
	}
	return ""
}

func texts(data any) []string {
	var out []string
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case map[string]any:
				for _, key := range messageKeys {
					if s, ok := it[key].(string); ok {
						out = append(out, s)
					}
				}
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := v[k].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// text renders a decoded JSON scalar as a string.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// integer parses an inventory count sent either as a number or a string.
func integer(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	default:
		return 0, false
	}
}
