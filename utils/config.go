package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/alpacahq/chunkstore/utils/log"
)

// Environment overrides consulted when the YAML leaves a value unset.
const (
	EnvDataDir     = "CHUNKSTORE_DATA_DIR"
	EnvAllowNoLock = "CHUNKSTORE_ALLOW_NO_LOCK"
)

type PutMode int

const (
	PutOver PutMode = iota
	PutOnce
	PutAdd
	PutAddUnique
)

func (m PutMode) String() string {
	switch m {
	case PutOver:
		return "over"
	case PutOnce:
		return "once"
	case PutAdd:
		return "add"
	case PutAddUnique:
		return "add_unique"
	}
	return "PutMode(" + strconv.Itoa(int(m)) + ")"
}

func ParsePutMode(s string) (PutMode, error) {
	switch strings.ToLower(s) {
	case "over", "":
		return PutOver, nil
	case "once":
		return PutOnce, nil
	case "add":
		return PutAdd, nil
	case "add_unique", "addunique":
		return PutAddUnique, nil
	}
	return PutOver, fmt.Errorf("unknown put mode %q", s)
}

// LeadTimeStorage says where a forecast lead time is kept in a chunk
// reference, if anywhere.
type LeadTimeStorage int32

const (
	LeadTimeNotApplicable LeadTimeStorage = iota
	LeadTimeInDataType
	LeadTimeInDataType2
)

func (l LeadTimeStorage) String() string {
	switch l {
	case LeadTimeNotApplicable:
		return "none"
	case LeadTimeInDataType:
		return "data_type"
	case LeadTimeInDataType2:
		return "data_type2"
	}
	return "LeadTimeStorage(" + strconv.Itoa(int(l)) + ")"
}

func ParseLeadTimeStorage(s string) (LeadTimeStorage, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return LeadTimeNotApplicable, nil
	case "data_type":
		return LeadTimeInDataType, nil
	case "data_type2":
		return LeadTimeInDataType2, nil
	}
	return LeadTimeNotApplicable, fmt.Errorf("unknown lead time storage %q", s)
}

type StoreConfig struct {
	RootDirectory     string
	AppName           string
	LogLevel          log.Level
	PutMode           PutMode
	CompressOnPut     string
	UncompressOnGet   bool
	EnableDefrag      bool
	RespectZeroTypes  bool
	IgnoreLock        bool
	LeadTimeStorage   LeadTimeStorage
	LatestDataMarker  bool
	MetricsListen     string
	DiskUsageInterval time.Duration
}

// DefaultConfig returns the settings used when a key is absent from YAML.
func DefaultConfig() *StoreConfig {
	return &StoreConfig{
		AppName:           "chunkstore",
		LogLevel:          log.INFO,
		PutMode:           PutOver,
		CompressOnPut:     "none",
		UncompressOnGet:   true,
		EnableDefrag:      true,
		LatestDataMarker:  true,
		DiskUsageInterval: time.Minute,
	}
}

func ParseConfig(data []byte) (*StoreConfig, error) {
	var (
		err error
		aux struct {
			RootDirectory     string `yaml:"root_directory"`
			AppName           string `yaml:"app_name"`
			LogLevel          string `yaml:"log_level"`
			PutMode           string `yaml:"put_mode"`
			CompressOnPut     string `yaml:"compress_on_put"`
			UncompressOnGet   string `yaml:"uncompress_on_get"`
			EnableDefrag      string `yaml:"enable_defrag"`
			RespectZeroTypes  string `yaml:"respect_zero_types"`
			IgnoreLock        string `yaml:"ignore_lock"`
			LeadTimeStorage   string `yaml:"lead_time_storage"`
			LatestDataMarker  string `yaml:"latest_data_marker"`
			MetricsListen     string `yaml:"metrics_listen"`
			DiskUsageInterval int    `yaml:"disk_usage_interval"`
		}
	)

	if err = yaml.Unmarshal(data, &aux); err != nil {
		return nil, err
	}

	m := DefaultConfig()

	m.RootDirectory = aux.RootDirectory
	if m.RootDirectory == "" {
		m.RootDirectory = os.Getenv(EnvDataDir)
	}
	if m.RootDirectory == "" {
		return nil, errors.New("invalid root directory")
	}

	if aux.AppName != "" {
		m.AppName = aux.AppName
	}

	if aux.LogLevel != "" {
		if m.LogLevel, err = log.ParseLevel(aux.LogLevel); err != nil {
			log.Error("Invalid value: %v for log_level. Using info...", aux.LogLevel)
		}
		log.SetLevel(m.LogLevel)
	}

	if m.PutMode, err = ParsePutMode(aux.PutMode); err != nil {
		return nil, err
	}

	if aux.CompressOnPut != "" {
		// validated by the compress package when the store is built
		m.CompressOnPut = strings.ToLower(aux.CompressOnPut)
	}

	if m.LeadTimeStorage, err = ParseLeadTimeStorage(aux.LeadTimeStorage); err != nil {
		return nil, err
	}

	parseBool(aux.UncompressOnGet, "uncompress_on_get", &m.UncompressOnGet)
	parseBool(aux.EnableDefrag, "enable_defrag", &m.EnableDefrag)
	parseBool(aux.RespectZeroTypes, "respect_zero_types", &m.RespectZeroTypes)
	parseBool(aux.IgnoreLock, "ignore_lock", &m.IgnoreLock)
	parseBool(aux.LatestDataMarker, "latest_data_marker", &m.LatestDataMarker)

	if !m.IgnoreLock && AllowNoLock() {
		log.Warn("%s is set, read locks may be skipped", EnvAllowNoLock)
		m.IgnoreLock = true
	}

	m.MetricsListen = aux.MetricsListen
	if aux.DiskUsageInterval > 0 {
		m.DiskUsageInterval = time.Duration(aux.DiskUsageInterval) * time.Second
	}

	return m, nil
}

// AllowNoLock reports whether $CHUNKSTORE_ALLOW_NO_LOCK lets reads go
// ahead when the directory lock cannot be taken.
func AllowNoLock() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvAllowNoLock))
	return err == nil && v
}

func parseBool(raw, key string, dst *bool) {
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Error("Invalid value: %v for %s. Keeping %v...", raw, key, *dst)
		return
	}
	*dst = v
}
