// Package model defines the relational projection of marketplace state. The
// settlement engine is authoritative; these tables mirror its event stream
// for the read API.
package model

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pkg/errors"
)

// DBConfig carries the mysql connection settings.
type DBConfig struct {
	User         string `toml:"user" mapstructure:"user" json:"user"`
	Password     string `toml:"password" mapstructure:"password" json:"password"`
	Host         string `toml:"host" mapstructure:"host" json:"host"`
	Port         int    `toml:"port" mapstructure:"port" json:"port"`
	Database     string `toml:"database" mapstructure:"database" json:"database"`
	MaxIdleConns int    `toml:"max_idle_conns" mapstructure:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns int    `toml:"max_open_conns" mapstructure:"max_open_conns" json:"max_open_conns"`
}

// NewDB opens the projection database and migrates the tables.
func NewDB(cfg DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed on open database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed on get sql db")
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.AutoMigrate(&Order{}, &Activity{}, &Collection{}, &IndexedStatus{}); err != nil {
		return nil, errors.Wrap(err, "failed on migrate tables")
	}
	return db, nil
}
