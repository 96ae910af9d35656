package mqtt

import (
	"errors"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	if got := topics.SettingsSync(42); got != "settings_sync/42" {
		t.Errorf("SettingsSync(42) = %q", got)
	}
	if got := topics.DataUpdate(7); got != "data_update/7" {
		t.Errorf("DataUpdate(7) = %q", got)
	}
	if got := topics.AllSettingsReports(); got != "settings_report/+" {
		t.Errorf("AllSettingsReports() = %q", got)
	}
}

func TestInboundPatternsCoverAllFamilies(t *testing.T) {
	patterns := Topics{}.InboundPatterns()
	want := []string{
		"sensors/+", "status/+", "presence/+", "telemetry/+",
		"settings_report/+", "settings_ack/+", "config/+",
	}

	if len(patterns) != len(want) {
		t.Fatalf("InboundPatterns() returned %d patterns, want %d", len(patterns), len(want))
	}
	for i, p := range want {
		if patterns[i] != p {
			t.Errorf("patterns[%d] = %q, want %q", i, patterns[i], p)
		}
	}
}

func TestSplitDeviceTopic(t *testing.T) {
	tests := []struct {
		topic      string
		wantPrefix string
		wantID     int64
		wantErr    bool
	}{
		{"sensors/42", "sensors", 42, false},
		{"settings_report/1", "settings_report", 1, false},
		{"config/987654", "config", 987654, false},
		{"sensors/not-a-number", "", 0, true},
		{"sensors/", "", 0, true},
		{"sensors", "", 0, true},
		{"sensors/42/extra", "", 0, true},
		{"/42", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			prefix, id, err := SplitDeviceTopic(tt.topic)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitDeviceTopic(%q) succeeded, want error", tt.topic)
				}
				if !errors.Is(err, ErrMalformedTopic) {
					t.Errorf("error = %v, want ErrMalformedTopic", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitDeviceTopic(%q) error: %v", tt.topic, err)
			}
			if prefix != tt.wantPrefix || id != tt.wantID {
				t.Errorf("SplitDeviceTopic(%q) = (%q, %d), want (%q, %d)",
					tt.topic, prefix, id, tt.wantPrefix, tt.wantID)
			}
		})
	}
}
