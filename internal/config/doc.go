// Package config provides configuration structures and utilities for fprdiff.
// It defines the archive entry names, extraction and output naming, report
// preferences, history and upload settings, and the optional .fprdiff file.
package config
