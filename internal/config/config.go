// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"arcade/internal/archive"
)

type Config struct {
	Port            int
	DBPath          string
	DatabaseURL     string
	JWTSecret       string
	TurnTimeout     time.Duration
	SweepInterval   time.Duration
	ArchiveAfter    time.Duration
	ArchiveInterval time.Duration
	Archive         archive.S3Config
}

// ArchiveEnabled reports whether a bucket is configured.
func (c Config) ArchiveEnabled() bool { return c.Archive.Bucket != "" }

// Addr is the listen address.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Load reads files (default .env) into the environment, then parses it.
// Missing files are ignored; variables already set win over file values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses settings through getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	c := Config{
		Port:            p.int("PORT", 8080),
		DBPath:          p.str("DB_PATH", "arcade.db"),
		DatabaseURL:     getenv("DATABASE_URL"),
		JWTSecret:       getenv("JWT_SECRET"),
		TurnTimeout:     p.duration("TURN_TIMEOUT", 60*time.Second),
		SweepInterval:   p.duration("SWEEP_INTERVAL", 5*time.Second),
		ArchiveAfter:    p.duration("ARCHIVE_AFTER", time.Hour),
		ArchiveInterval: p.duration("ARCHIVE_INTERVAL", time.Minute),
		Archive: archive.S3Config{
			Bucket:          getenv("ARCHIVE_BUCKET"),
			Endpoint:        getenv("ARCHIVE_ENDPOINT"),
			Region:          p.str("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getenv("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("ARCHIVE_SECRET_ACCESS_KEY"),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}
	return c, nil
}

// parser keeps the first error so defaults can be listed in one literal.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		p.fail(key, v)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail(key, v)
		return def
	}
	return d
}

func (p *parser) fail(key, v string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q", key, v)
	}
}
