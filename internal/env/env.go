package env

import (
	"github.com/thatsimonsguy/light-controller/internal/config"
)

var Cfg *config.Config
