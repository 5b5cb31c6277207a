package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"rulemerge/config"
)

func setupLogging(cfg config.LogConfig) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.999"})

	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level '%s': %w", cfg.Level, err)
		}
		level = parsed
	}
	log.SetLevel(level)

	if cfg.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:  cfg.File,
			MaxSize:   100, // megabytes
			MaxAge:    28,  // days
			LocalTime: true,
		})
	} else {
		log.SetOutput(os.Stdout)
	}
	return nil
}
