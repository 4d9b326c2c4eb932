// Package theme holds the poster theme registry.
//
// The built-in themes mirror the palettes the poster service renders with.
// A user file (YAML or TOML) may add themes or replace built-ins by key.
package theme
