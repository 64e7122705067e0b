// Package config loads stepgrid.toml.
//
// Every field has a default, so a missing file is not an error:
//
//	[board]
//	rows = 50
//	cols = 50
//	max_size = 50
//
//	[expr]
//	max_depth = 64
//	cache_size = 4096
//
//	[cache]
//	backend = "file"   # file, redis or none
//	ttl = "168h"
//
//	[store]
//	backend = "file"   # file or mongo
//
//	[server]
//	addr = ":8080"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/cache"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/expr"
)

// FileName is the config file looked up in the user config directory.
const FileName = "stepgrid.toml"

// Backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config is the parsed configuration.
type Config struct {
	Board  binding.Bounds `toml:"board"`
	Expr   ExprConfig     `toml:"expr"`
	Cache  CacheConfig    `toml:"cache"`
	Store  StoreConfig    `toml:"store"`
	Server ServerConfig   `toml:"server"`
}

// ExprConfig tunes the expression parser.
type ExprConfig struct {
	MaxDepth  int `toml:"max_depth"`
	CacheSize int `toml:"cache_size"` // parsed formulas kept per resolver
}

// Options returns the parser options for e.
func (e ExprConfig) Options() expr.Options {
	return expr.Options{MaxDepth: e.MaxDepth, CacheSize: e.CacheSize}
}

// CacheConfig selects the plan cache backend.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"` // file backend; default user cache dir
	TTL           time.Duration `toml:"ttl"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"` // file backend; default ~/.config/stepgrid/documents
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServerConfig configures `stepgrid serve`.
type ServerConfig struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills every zero field.
func (c *Config) SetDefaults() {
	c.Board = c.Board.WithDefaults()
	if c.Expr.MaxDepth <= 0 {
		c.Expr.MaxDepth = expr.DefaultMaxDepth
	}
	if c.Expr.CacheSize <= 0 {
		c.Expr.CacheSize = expr.DefaultCacheSize
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = cache.PlanTTL
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFile
	}
	if c.Store.MongoURI == "" {
		c.Store.MongoURI = "mongodb://localhost:27017"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
}

// Validate rejects unknown backends and impossible boards.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "cache.backend %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case BackendFile, BackendMongo:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "store.backend %q (must be one of: file, mongo)", c.Store.Backend)
	}
	if c.Board.Rows < 1 || c.Board.Cols < 1 || c.Board.MaxSize < 1 {
		return errs.New(errs.ErrCodeInvalidInput, "board %dx%d with max size %d", c.Board.Rows, c.Board.Cols, c.Board.MaxSize)
	}
	return nil
}

// Resolver returns a binding resolver for the configured board and parser.
func (c *Config) Resolver() *binding.Resolver {
	return binding.NewResolver(c.Board, expr.NewCache(c.Expr.Options()))
}

// DefaultPath returns $XDG_CONFIG_HOME/stepgrid/stepgrid.toml, or the
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "stepgrid", FileName), nil
}

// Load reads path, or the default path when path is empty. A missing file
// at the default path yields Default(); a missing explicit path is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	var c Config
	md, err := toml.DecodeFile(path, &c)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errs.New(errs.ErrCodeInvalidInput, "config %s: unknown key %s", path, undecoded[0])
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Write encodes c as TOML to path, creating parent directories.
func Write(c Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
