// Package logger builds the zap logger used across the service
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New builds a production (json) logger for "prod"/"production" mode and
// a development (console) logger otherwise
func New(mode string) (*zap.Logger, error) {
	var cfg zap.Config

	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	return cfg.Build()
}
