package config

import (
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
)

// SkyModelDsn returns the DSN for the sky model database.
func SkyModelDsn() string {
	return config.SkyModelDSN()
}
