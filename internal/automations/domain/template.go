package domain

import (
	"fmt"
	"strings"
)

// placeholderKeys maps template placeholders to trigger data fields.
// Substitution is literal string replacement: unknown placeholders are
// left verbatim, missing fields render empty ({{name}} falls back to
// "Customer").
var placeholderKeys = map[string]string{
	"{{name}}":     "contact_name",
	"{{email}}":    "contact_email",
	"{{phone}}":    "contact_phone",
	"{{service}}":  "service_name",
	"{{date}}":     "booking_date",
	"{{time}}":     "booking_time",
	"{{item}}":     "item_name",
	"{{quantity}}": "quantity",
}

// RenderTemplate substitutes the supported placeholders in text against
// the trigger data.
func RenderTemplate(text string, triggerData map[string]any) string {
	for placeholder, key := range placeholderKeys {
		value := stringValue(triggerData[key])
		if placeholder == "{{name}}" && value == "" {
			value = "Customer"
		}
		text = strings.ReplaceAll(text, placeholder, value)
	}
	return text
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; render integers without a
		// fractional part.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
