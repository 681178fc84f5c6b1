package envutil

import (
	"os"
	"strconv"

	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// GetEnv reads an environment variable, falling back to defaultVal and
// logging the fallback at debug level when one is supplied.
func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("environment variable found", "value", val)
	}
	return val
}

// GetEnvAsInt is GetEnv with integer parsing; an unparsable value falls
// back to defaultVal the same as an absent one.
func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("environment variable could not be parsed as int, using default", "providedVal", valStr, "defaultVal", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("environment variable found", "value", i)
	}
	return i
}
