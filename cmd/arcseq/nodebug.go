//go:build !debug

package main

import (
	"log"

	"github.com/fatih/color"
	"github.com/nickng/arcseq/config"
	"go.uber.org/zap"
)

// newLogger returns a logger as configured, without colors.
func newLogger(conf *config.Config) *zap.Logger {
	color.NoColor = true
	l, err := conf.Logger()
	if err != nil {
		log.Fatal("Cannot create new logger:", err)
	}
	return l
}
