/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package db provides the local SQLite probe cache.
package db

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ProbeRecord caches prober results per file so library rescans avoid
// re-running ffprobe for unchanged files.
type ProbeRecord struct {
	Path       string `gorm:"primaryKey"`
	Size       int64
	ModTime    time.Time
	DurationMS int64
	Title      string
	Artist     string
	Album      string
	Codec      string
	Bitrate    int
	SampleRate int
	Channels   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Open connects to the SQLite cache at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := gdb.AutoMigrate(&ProbeRecord{}); err != nil {
		return nil, err
	}

	return gdb, nil
}

// Close releases database resources.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
