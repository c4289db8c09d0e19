package job

import "strings"

// DefaultRedisKeysEnv is the job environment entry listing Redis keys owned by the job
const DefaultRedisKeysEnv = "DL_JOB_REDIS_KEYS"

// EnvToBool reads a boolean stored in a job environment value
func EnvToBool(value string) bool {
	switch value {
	case "True", "true", "1", "Yes", "yes":
		return true
	}
	return false
}

// BoolToEnv formats a boolean for storage in a job environment value
func BoolToEnv(value bool) string {
	if value {
		return "True"
	}
	return "False"
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
