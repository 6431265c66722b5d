package storage

import (
	"testing"
)

func TestCompare(t *testing.T) {
	oldBody := []byte(`[
		{"name": "ip", "type": "STRING", "mode": "REQUIRED"},
		{"name": "p443", "type": "RECORD", "mode": "NULLABLE", "fields": [
			{"name": "https", "type": "STRING", "mode": "NULLABLE"}
		]},
		{"name": "notes", "type": "STRING", "mode": "NULLABLE"}
	]`)
	newBody := []byte(`[
		{"name": "p443", "type": "RECORD", "mode": "NULLABLE", "fields": [
			{"name": "https", "type": "STRING", "mode": "REPEATED"}
		]},
		{"name": "ip", "type": "STRING", "mode": "REQUIRED"},
		{"name": "tags", "type": "STRING", "mode": "REPEATED"}
	]`)

	d, err := Compare(oldBody, newBody)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if len(d.Changed) != 1 || d.Changed[0].Path != "p443.fields.https.mode" {
		t.Errorf("Changed = %+v, want p443.fields.https.mode", d.Changed)
	}
	if len(d.Added) != 2 || d.Added[0].Path != "tags.mode" || d.Added[1].Path != "tags.type" {
		t.Errorf("Added = %+v, want tags.mode and tags.type", d.Added)
	}
	if len(d.Removed) != 2 || d.Removed[0].Path != "notes.mode" {
		t.Errorf("Removed = %+v, want notes.*", d.Removed)
	}
	if d.Empty() {
		t.Error("Empty() = true for differing exports")
	}
}

func TestCompareIdentical(t *testing.T) {
	body := []byte(`{"ipv4host": {"properties": {"ip": {"type": "ip"}}}}`)
	d, err := Compare(body, body)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !d.Empty() {
		t.Errorf("Compare(identical) = %+v", d)
	}

	if _, err := Compare([]byte("{"), body); err == nil {
		t.Error("Compare should fail on invalid JSON")
	}
}
