package config

import "encoding/json"

// sanitizeForPersistence prepares the copy of a remote config payload that
// gets written to last_known.json: a `"printer": null` key is dropped so a
// later cold start falls back to the local default.{yaml} printer section
// instead of disabling printing outright, and the whole `"mqtt"` section
// is dropped since broker connectivity is a local, not central, concern.
func sanitizeForPersistence(payload []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}

	if raw, ok := doc["printer"]; ok && raw == nil {
		delete(doc, "printer")
	}
	delete(doc, "mqtt")

	return json.Marshal(doc)
}
