package telemetry

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Joint fields as the controller names them: rax_1 through rax_6
func jointKey(axis int) string {
	return "rax_" + strconv.Itoa(axis)
}

// Parse converts a raw payload into a sample. The controller does not
// guarantee a format, so we try JSON and then XML; anything else is an error
// the caller logs and drops. When expectedSubscription is non-empty (socket
// payloads), the payload must reference that subscription id or it is ignored
// as cross-subscription traffic.
func Parse(raw []byte, expectedSubscription string) (Sample, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Sample{}, fmt.Errorf("empty payload")
	}

	if sample, err := parseJson([]byte(trimmed), expectedSubscription); err == nil {
		return sample, nil
	} else if !strings.HasPrefix(trimmed, "<") {
		return Sample{}, err
	}

	return parseXml(trimmed, expectedSubscription)
}

func parseJson(raw []byte, expectedSubscription string) (Sample, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Sample{}, fmt.Errorf("payload is not json: %w", err)
	}

	if expectedSubscription != "" && !jsonReferences(decoded, expectedSubscription) {
		return Sample{}, fmt.Errorf("payload does not reference subscription %s", expectedSubscription)
	}

	joints := findJointObject(decoded)
	if joints == nil {
		return Sample{}, fmt.Errorf("no joint fields in json payload")
	}

	sample := Sample{CapturedAt: time.Now()}
	for axis := 1; axis <= JointCount; axis++ {
		// Missing fields stay at zero; a partial sample is still a sample
		if value, ok := joints[jointKey(axis)]; ok {
			sample.JointAngles[axis-1] = toFloat(value)
		}
	}
	return sample, nil
}

// findJointObject walks the nested response until it hits an object carrying
// at least one joint field. The controller wraps the state object differently
// across firmware revisions, so we don't assume a fixed nesting.
func findJointObject(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		for axis := 1; axis <= JointCount; axis++ {
			if _, ok := v[jointKey(axis)]; ok {
				return v
			}
		}
		for _, nested := range v {
			if joints := findJointObject(nested); joints != nil {
				return joints
			}
		}
	case []any:
		for _, nested := range v {
			if joints := findJointObject(nested); joints != nil {
				return joints
			}
		}
	}
	return nil
}

func jsonReferences(value any, subscriptionId string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, subscriptionId)
	case map[string]any:
		for _, nested := range v {
			if jsonReferences(nested, subscriptionId) {
				return true
			}
		}
	case []any:
		for _, nested := range v {
			if jsonReferences(nested, subscriptionId) {
				return true
			}
		}
	}
	return false
}

// Socket events arrive as xhtml: joint values live in <span class="rax_N">
// elements and the owning subscription shows up in an href. We scan tokens
// instead of unmarshalling a schema because the surrounding markup varies.
func parseXml(raw string, expectedSubscription string) (Sample, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))

	sample := Sample{CapturedAt: time.Now()}
	foundJoint := false
	foundSubscription := expectedSubscription == ""
	currentAxis := 0

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			currentAxis = 0
			for _, attr := range t.Attr {
				if expectedSubscription != "" && strings.Contains(attr.Value, expectedSubscription) {
					foundSubscription = true
				}
				if attr.Name.Local == "class" {
					currentAxis = axisFromKey(attr.Value)
				}
			}
			if currentAxis == 0 {
				currentAxis = axisFromKey(t.Name.Local)
			}
		case xml.CharData:
			if currentAxis > 0 {
				if value := strings.TrimSpace(string(t)); value != "" {
					sample.JointAngles[currentAxis-1] = parseFloat(value)
					foundJoint = true
				}
			}
		case xml.EndElement:
			currentAxis = 0
		}
	}

	if !foundJoint {
		return Sample{}, fmt.Errorf("no joint fields in payload")
	}
	if !foundSubscription {
		return Sample{}, fmt.Errorf("payload does not reference subscription %s", expectedSubscription)
	}

	return sample, nil
}

func axisFromKey(key string) int {
	for axis := 1; axis <= JointCount; axis++ {
		if key == jointKey(axis) {
			return axis
		}
	}
	return 0
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		return parseFloat(v)
	}
	return 0
}

// strconv always uses the decimal point, regardless of host locale. An
// unparsable value degrades to zero like a missing one.
func parseFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return parsed
}
