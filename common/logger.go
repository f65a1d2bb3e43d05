package common

import (
	"github.com/DaanVanVugt/jobtimize/status"
)

// MT: Constant after initialization; thread-safe
var Log status.Logger = status.Default()
