package settings

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		slot    string
		in      any
		want    any
		wantErr error
	}{
		{"string", "wifi_ssid", "HomeNet", "HomeNet", nil},
		{"string rejects number", "wifi_ssid", float64(1), nil, ErrInvalidValue},
		{"json number to int64", "led_brightness", float64(50), int64(50), nil},
		{"int64 passes", "led_brightness", int64(50), int64(50), nil},
		{"fractional rejected", "led_brightness", 50.5, nil, ErrInvalidValue},
		{"int rejects string", "led_brightness", "50", nil, ErrInvalidValue},
		{"bool passes", "ble_enabled", true, true, nil},
		{"bool from one", "ble_enabled", float64(1), true, nil},
		{"bool from zero", "ble_enabled", float64(0), false, nil},
		{"bool rejects string", "ble_enabled", "yes", nil, ErrInvalidValue},
		{"nil is unset", "sim_pin", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, ok := lookupSlot(tt.slot)
			if !ok {
				t.Fatalf("slot %s not in table", tt.slot)
			}
			got, err := normalize(def, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("normalize(%v) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize(%v) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("normalize(%v) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestSlotTableCoversFirmwareFields(t *testing.T) {
	// Every cJSON settings key the device firmware serializes, in the
	// order it reports them. A missing entry here means the backend would
	// silently drop that field from every report and sync payload.
	want := []string{
		"wifi_ssid",
		"wifi_pass",
		"wifi_auth",
		"device_mode",
		"allow_unencrypted_ble",
		"lte_enabled",
		"ble_enabled",
		"power_management_enabled",
		"pms5003_indoor",
		"pms5003_enabled",
		"bmp280_enabled",
		"dht22_enabled",
		"pms5003_measurement_interval",
		"bmp280_measurement_interval",
		"dht22_measurement_interval",
		"led_brightness",
		"sim_pin",
		"bmp280_settings",
		"measurement_interval_day_sec",
		"measurement_interval_night_sec",
		"daytime_start_sec",
		"daytime_end_sec",
		"owner_user_id",
	}

	names := SlotNames()
	if len(names) != len(want) {
		t.Fatalf("slot table has %d entries, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("slot %d = %s, want %s", i, names[i], name)
		}
	}
}

func TestSlotNamesMatchTable(t *testing.T) {
	names := SlotNames()
	if len(names) != len(slotTable) {
		t.Fatalf("SlotNames() has %d entries, want %d", len(names), len(slotTable))
	}
	for i, def := range slotTable {
		if names[i] != def.Name {
			t.Errorf("SlotNames()[%d] = %s, want %s", i, names[i], def.Name)
		}
	}
}
