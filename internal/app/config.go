package app

import (
	"github.com/yungbote/neurobridge-backend/internal/platform/envutil"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
)

// Config holds the engine's environment-driven settings: the Snowflake
// node identity (spec §4.6's apply_id generator) and the HTTP listen
// address, following the teacher's GetEnv/GetEnvAsInt-with-fallback
// convention for every tunable.
type Config struct {
	ListenAddr        string
	SnowflakeWorkerID int64
	SnowflakeDCID     int64
}

func LoadConfig(log *logger.Logger) Config {
	listenAddr := envutil.GetEnv("LISTEN_ADDR", ":8080", log)
	workerID := envutil.GetEnvAsInt("SNOWFLAKE_WORKER_ID", 1, log)
	dcID := envutil.GetEnvAsInt("SNOWFLAKE_DATACENTER_ID", 1, log)
	return Config{
		ListenAddr:        listenAddr,
		SnowflakeWorkerID: int64(workerID),
		SnowflakeDCID:     int64(dcID),
	}
}
