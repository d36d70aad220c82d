package provider

import "encoding/json"

// Helpers for walking dynamically-shaped vendor payloads without panicking.
// Every accessor degrades to its zero value when the path does not exist or
// has the wrong type, which is what keeps ParseResponse total.

// decodeObject unmarshals data and returns the top-level JSON object, or
// ok=false when the payload is valid JSON but not an object (null, array,
// scalar). An unmarshal failure is the only error path.
func decodeObject(data []byte) (map[string]any, bool, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, err
	}
	obj, ok := raw.(map[string]any)
	return obj, ok, nil
}

func objectField(obj map[string]any, key string) map[string]any {
	if obj == nil {
		return nil
	}
	child, _ := obj[key].(map[string]any)
	return child
}

func arrayField(obj map[string]any, key string) []any {
	if obj == nil {
		return nil
	}
	arr, _ := obj[key].([]any)
	return arr
}

func stringField(obj map[string]any, key string) (string, bool) {
	if obj == nil {
		return "", false
	}
	s, ok := obj[key].(string)
	return s, ok
}

func firstObject(arr []any) map[string]any {
	if len(arr) == 0 {
		return nil
	}
	obj, _ := arr[0].(map[string]any)
	return obj
}
