package subscription

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// The controller answers subscription creation with the assigned id in XML,
// JSON, or plain text depending on firmware revision. We probe all three in
// that order.
func parseSubscriptionId(body []byte) (string, error) {
	if id := idFromXml(body); id != "" {
		return id, nil
	}

	if id := idFromJson(body); id != "" {
		return id, nil
	}

	if id := idFromPlainText(body); id != "" {
		return id, nil
	}

	return "", fmt.Errorf("no subscription id in response body %q", truncate(body))
}

func idFromXml(body []byte) string {
	decoder := xml.NewDecoder(strings.NewReader(string(body)))

	var inIdElement bool
	for {
		token, err := decoder.Token()
		if err != nil {
			return ""
		}

		switch t := token.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			inIdElement = name == "id" || name == "subscriptionid"

			// Some revisions put the id in an attribute instead
			for _, attr := range t.Attr {
				attrName := strings.ToLower(attr.Name.Local)
				if attrName == "id" || attrName == "subscriptionid" {
					if value := strings.TrimSpace(attr.Value); value != "" {
						return value
					}
				}
			}
		case xml.CharData:
			if inIdElement {
				if value := strings.TrimSpace(string(t)); value != "" {
					return value
				}
			}
		case xml.EndElement:
			inIdElement = false
		}
	}
}

func idFromJson(body []byte) string {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}
	return idFromJsonValue(decoded)
}

func idFromJsonValue(value any) string {
	switch v := value.(type) {
	case map[string]any:
		for key, nested := range v {
			lowered := strings.ToLower(key)
			if lowered == "id" || lowered == "subscriptionid" {
				switch id := nested.(type) {
				case string:
					if strings.TrimSpace(id) != "" {
						return strings.TrimSpace(id)
					}
				case float64:
					return strconv.FormatFloat(id, 'f', -1, 64)
				}
			}
		}
		for _, nested := range v {
			if id := idFromJsonValue(nested); id != "" {
				return id
			}
		}
	case []any:
		for _, nested := range v {
			if id := idFromJsonValue(nested); id != "" {
				return id
			}
		}
	}
	return ""
}

// A plain-text id is a single bare token; anything with markup or whitespace
// in the middle is not an id
func idFromPlainText(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if strings.ContainsAny(trimmed, "<>{}\" \n\t") {
		return ""
	}
	return trimmed
}

func truncate(body []byte) string {
	const limit = 120
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
