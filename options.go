package decentdb

import (
	"strconv"
	"strings"

	"github.com/decentdb/decentdb/core"
)

const (
	DefaultCachePages      = 1024
	DefaultCheckpointBytes = 8 << 20
)

// Options are the settings recognized in the open configuration string.
type Options struct {
	CachePages      int
	SyncWrites      bool
	CheckpointBytes int64
	Author          core.Identity
}

func defaultOptions() Options {
	return Options{
		CachePages:      DefaultCachePages,
		SyncWrites:      true,
		CheckpointBytes: DefaultCheckpointBytes,
		Author:          core.Identity{Name: "decentdb", Email: "decentdb@localhost"},
	}
}

// ParseOptions reads key=value pairs separated by '&' or ';'. Unknown keys
// and malformed values are ConfigError.
func ParseOptions(text string) (Options, error) {
	opts := defaultOptions()

	fields := strings.FieldsFunc(text, func(r rune) bool { return r == '&' || r == ';' })
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return Options{}, core.Errorf(core.CodeConfig, "option %q has no value", field)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "cache_pages":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return Options{}, core.Errorf(core.CodeConfig, "cache_pages must be a non-negative integer, got %q", value)
			}
			opts.CachePages = n
		case "sync":
			switch strings.ToLower(value) {
			case "full":
				opts.SyncWrites = true
			case "normal", "off":
				opts.SyncWrites = false
			default:
				return Options{}, core.Errorf(core.CodeConfig, "sync must be full or normal, got %q", value)
			}
		case "checkpoint_bytes":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return Options{}, core.Errorf(core.CodeConfig, "checkpoint_bytes must be a non-negative integer, got %q", value)
			}
			opts.CheckpointBytes = n
		case "author":
			id, err := core.ParseIdentity(value)
			if err != nil {
				return Options{}, core.Errorf(core.CodeConfig, "author: %s", core.MessageOf(err))
			}
			opts.Author = id
		default:
			return Options{}, core.Errorf(core.CodeConfig, "unknown option %q", key)
		}
	}
	return opts, nil
}
