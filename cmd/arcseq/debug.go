//go:build debug

package main

import (
	"log"

	"github.com/nickng/arcseq/config"
	"go.uber.org/zap"
)

// newLogger returns a development logger writing to the configured outputs
// at debug level.
func newLogger(conf *config.Config) *zap.Logger {
	conf.Log.Development = true
	conf.Log.Level = "debug"
	l, err := conf.Logger()
	if err != nil {
		log.Fatal("Cannot create new logger:", err)
	}
	return l
}
