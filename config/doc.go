// Package config loads and validates the statesync application
// configuration from JSON files.
//
// Files are read defensively: a size cap, a nesting-depth cap, and a
// path check run before parsing. Defaults are applied after parsing,
// so a minimal config only needs the device URL:
//
//	{
//	  "device": {"url": "ws://device.local:6053/stream"}
//	}
package config
