package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var dataDirCmd = flag.String("data-dir", "", "directory holding the WAL and segment files")

// Config tunes every knob the storage engine exposes. Defaults match the
// values a fresh install should behave with; every field can be
// overridden through the environment, and DataDir additionally through
// the -data-dir flag.
type Config struct {
	DataDir                   string
	RotateThreshold           int
	CompactionMaxSegmentBytes int64
	WorkerInterval            time.Duration
	PositionIndexPrefixLen    int
}

// LoadConfig loads a .env file if present, then reads each setting from
// the environment, falling back to the package defaults.
func LoadConfig() Config {
	godotenv.Load(".env")

	dataDir := *dataDirCmd
	if dataDir == "" {
		dataDir = os.Getenv("LSMKV_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "./data"
	}

	return Config{
		DataDir:                   dataDir,
		RotateThreshold:           intEnv("LSMKV_ROTATE_THRESHOLD", 10000),
		CompactionMaxSegmentBytes: int64Env("LSMKV_COMPACTION_MAX_SEGMENT_BYTES", 50*1024*1024),
		WorkerInterval:            durationEnv("LSMKV_WORKER_INTERVAL", 500*time.Millisecond),
		PositionIndexPrefixLen:    intEnv("LSMKV_POSITION_INDEX_PREFIX_LEN", 7),
	}
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func int64Env(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
