package config

import "strings"

// toDottedKey converts CATALOGCORE_COLLECT_BATCH_SIZE to collect.batch_size,
// mirroring koanf's "." delimiter convention used by Config's struct tags.
func toDottedKey(envKey string) string {
	trimmed := strings.TrimPrefix(envKey, EnvPrefix)
	trimmed = strings.ToLower(trimmed)
	parts := strings.SplitN(trimmed, "_", 2)
	if len(parts) != 2 {
		return trimmed
	}
	return parts[0] + "." + parts[1]
}
