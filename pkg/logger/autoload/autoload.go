// Package autoload initializes the global logger from the LOG-prefixed
// environment on import.
package autoload

import (
	configx "github.com/atelierline/concierge/pkg/config"
	logx "github.com/atelierline/concierge/pkg/logger"
)

func init() {
	conf := configx.MustNew[logx.Config]("LOG")
	logx.Init(*conf)
}
