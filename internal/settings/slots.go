package settings

import (
	"fmt"
	"math"
)

// Kind is the wire type of a setting slot's value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

// SlotDef describes one setting slot: its canonical wire name, value kind
// and the default a freshly created record starts with. A nil default
// means "unset" (e.g. no SIM PIN configured).
type SlotDef struct {
	Name    string
	Kind    Kind
	Default any
}

// slotTable is the single source of truth for the slot set. Names match
// the device firmware's JSON keys exactly, and the device_settings table
// carries one current column plus one "_pending" column per entry here.
var slotTable = []SlotDef{
	{Name: "wifi_ssid", Kind: KindString},
	{Name: "wifi_pass", Kind: KindString},
	{Name: "wifi_auth", Kind: KindInt, Default: int64(3)},
	{Name: "device_mode", Kind: KindInt, Default: int64(0)},
	{Name: "allow_unencrypted_ble", Kind: KindBool, Default: false},
	{Name: "lte_enabled", Kind: KindBool, Default: false},
	{Name: "ble_enabled", Kind: KindBool, Default: true},
	{Name: "power_management_enabled", Kind: KindBool, Default: false},
	{Name: "pms5003_indoor", Kind: KindBool, Default: false},
	{Name: "pms5003_enabled", Kind: KindBool, Default: true},
	{Name: "bmp280_enabled", Kind: KindBool, Default: true},
	{Name: "dht22_enabled", Kind: KindBool, Default: true},
	{Name: "pms5003_measurement_interval", Kind: KindInt, Default: int64(300)},
	{Name: "bmp280_measurement_interval", Kind: KindInt, Default: int64(300)},
	{Name: "dht22_measurement_interval", Kind: KindInt, Default: int64(300)},
	{Name: "led_brightness", Kind: KindInt, Default: int64(100)},
	{Name: "sim_pin", Kind: KindInt},
	{Name: "bmp280_settings", Kind: KindInt, Default: int64(0)},
	{Name: "measurement_interval_day_sec", Kind: KindInt, Default: int64(300)},
	{Name: "measurement_interval_night_sec", Kind: KindInt, Default: int64(900)},
	{Name: "daytime_start_sec", Kind: KindInt, Default: int64(21600)},
	{Name: "daytime_end_sec", Kind: KindInt, Default: int64(79200)},
	{Name: "owner_user_id", Kind: KindInt},
}

var slotIndex = func() map[string]SlotDef {
	m := make(map[string]SlotDef, len(slotTable))
	for _, def := range slotTable {
		m[def.Name] = def
	}
	return m
}()

// lookupSlot returns the definition for a canonical slot name.
func lookupSlot(name string) (SlotDef, bool) {
	def, ok := slotIndex[name]
	return def, ok
}

// SlotNames returns the canonical slot names in table order.
func SlotNames() []string {
	names := make([]string, len(slotTable))
	for i, def := range slotTable {
		names[i] = def.Name
	}
	return names
}

// normalize coerces a decoded JSON value to the slot's canonical Go type:
// string, int64 or bool. nil passes through as "unset". Firmware sends
// booleans as either JSON booleans or 0/1 integers; both are accepted.
func normalize(def SlotDef, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch def.Kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidValue, def.Name, v)

	case KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%w: %s expects an integer, got %v", ErrInvalidValue, def.Name, n)
			}
			return int64(n), nil
		}
		return nil, fmt.Errorf("%w: %s expects an integer, got %T", ErrInvalidValue, def.Name, v)

	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case int:
			return b != 0, nil
		case float64:
			return b != 0, nil
		}
		return nil, fmt.Errorf("%w: %s expects a boolean, got %T", ErrInvalidValue, def.Name, v)
	}

	return nil, fmt.Errorf("%w: %s has unknown kind", ErrInvalidValue, def.Name)
}

// valuesEqual compares two normalized slot values. Normalized values are
// nil, string, int64 or bool, all comparable.
func valuesEqual(a, b any) bool {
	return a == b
}
