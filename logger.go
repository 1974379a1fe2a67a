package threadobject

import (
	"os"

	"github.com/Swind/go-threadobject/config"
	"github.com/Swind/go-threadobject/core"
)

func newConfiguredLogger(cfg config.Config) core.Logger {
	l, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return core.NewDefaultLogger()
	}
	return core.NewLogifaceLogger(l)
}
