// Package config loads and validates Wihajster Core configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by WIHAJSTER_* environment variables. The rest of
// the application receives typed section structs rather than raw maps, so
// a typo in config.yaml fails at startup rather than at first use.
package config
