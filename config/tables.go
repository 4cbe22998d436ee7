package config

import (
	"github.com/creasty/defaults"
)

type (
	//TableCfg is the container for other table config sections
	TableCfg struct {
		Log       LogTableCfg
		Blocklist BlocklistTableCfg
		Detection DetectionTableCfg
	}

	//LogTableCfg contains the configuration for logging
	LogTableCfg struct {
		SnitchLogTable string `default:"logs"`
	}

	//BlocklistTableCfg contains the name of the blocklist source collection
	BlocklistTableCfg struct {
		BlocklistTable string `default:"blocklist"`
	}

	//DetectionTableCfg contains the names of the detection collections
	DetectionTableCfg struct {
		DetectionsTable string `default:"detections"`
	}
)

// loadTableConfig initializes the table config to the default values
func loadTableConfig() (*TableCfg, error) {
	var config = new(TableCfg)
	if err := defaults.Set(config); err != nil {
		return nil, err
	}
	return config, nil
}
