// Package config loads and validates the YAML configuration for the
// reactorwatch monitor and serves hot-reload notifications via fsnotify.
//
// Every analysis tunable (weight thresholds, debounce window, noise
// filter, stability window, analysis window, kLa, recovery threshold,
// r² minimum) is a config field — components receive these values at
// construction time and never read globals.
package config
