package structs

import (
	"encoding/json"
	"testing"
)

func TestNewKeys(t *testing.T) {
	k := NewKeys("background_export_tg")

	want := []string{
		"background_export_tg_status",
		"background_export_tg_progress",
		"background_export_tg_total",
		"background_export_tg_file_path",
		"background_export_tg_error",
		"background_export_tg_lock",
	}
	got := k.All()
	if len(got) != len(want) {
		t.Fatalf("All() returned %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d = %s, want %s", i, got[i], want[i])
		}
	}
	if len(k.Snapshot()) != 5 {
		t.Errorf("Snapshot() should hold five keys")
	}
}

func TestIdleSnapshotJSON(t *testing.T) {
	b, err := json.Marshal(IdleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"status":"idle","progress":0,"total":0,"filePath":null,"error":null}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}
