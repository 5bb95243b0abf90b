package events

import "testing"

func TestFileChangeType_Values(t *testing.T) {
	tests := []struct {
		changeType FileChangeType
		expected   string
	}{
		{FileChangeCreated, "created"},
		{FileChangeModified, "modified"},
		{FileChangeDeleted, "deleted"},
		{FileChangeRenamed, "renamed"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.changeType) != tt.expected {
				t.Errorf("FileChangeType = %s, want %s", tt.changeType, tt.expected)
			}
		})
	}
}
