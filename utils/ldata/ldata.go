// Package ldata reads and writes the "latest data" marker kept in a
// product directory, which lets readers find the newest chunk without
// listing the directory.
package ldata

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

const FileName = "_latest_data_info.yml"

type Info struct {
	// LatestTime is the valid time of the newest chunk, or the
	// generation time for forecasts.
	LatestTime  int64  `yaml:"latest_time"`
	LeadTime    int64  `yaml:"lead_time"`
	IsForecast  bool   `yaml:"is_forecast"`
	RelDataPath string `yaml:"rel_data_path"`
	Writer      string `yaml:"writer"`
	DataType    string `yaml:"data_type"`
	WriteTime   int64  `yaml:"write_time"`
}

// LatestValidTime is the newest valid time the marker describes.
func (i *Info) LatestValidTime() int64 {
	if i.IsForecast {
		return i.LatestTime + i.LeadTime
	}
	return i.LatestTime
}

// Read returns the marker in dir.  A missing marker yields an error
// satisfying errors.Is(err, os.ErrNotExist).
func Read(dir string) (*Info, error) {
	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	info := &Info{}
	if err := yaml.Unmarshal(b, info); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	return info, nil
}

// Write replaces the marker in dir.  The file is written beside the
// target and renamed over it so readers never see a partial marker.
func Write(dir string, info *Info) error {
	if info.WriteTime == 0 {
		info.WriteTime = time.Now().Unix()
	}
	b, err := yaml.Marshal(info)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, FileName))
}
