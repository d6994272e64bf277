// Package config holds the file and flag configuration of the kvcached
// binary and its parsing into a server.Config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/facebookgo/stackerr"

	"github.com/rahultewari75/cache"
	"github.com/rahultewari75/cache/internal/util"
	"github.com/rahultewari75/cache/log"
	"github.com/rahultewari75/cache/server"
)

type Config struct {
	Port           int    `json:"port,omitempty"`
	Host           string `json:"host,omitempty"`
	LogDestination string `json:"log-destination,omitempty"` // Stdout, stderr, or filepath.
	LogLevel       string `json:"log-level,omitempty"`
	CachePolicy    string `json:"cache-policy,omitempty"`
	CacheCapacity  int    `json:"cache-capacity,omitempty"`
	// Size values 10g, 128m, 1024k, 1000000b
	MaxValueSize string `json:"max-value-size,omitempty"`
}

func Default() *Config {
	return &Config{
		Port:           11211,
		Host:           "",
		LogDestination: "stderr",
		LogLevel:       "info",
		CachePolicy:    "lru",
		CacheCapacity:  1024,
		MaxValueSize:   "1m",
	}
}

func Parse(conf *Config) (sconf server.Config, err error) {
	sconf.LogDestination, err = logDestination(conf.LogDestination)
	if err != nil {
		err = stackerr.Newf("Log destination open error: %v", err)
		return
	}
	sconf.LogLevel, err = log.LevelFromString(conf.LogLevel)
	if err != nil {
		err = stackerr.Newf("Log level parse error: %v", err)
		return
	}
	sconf.Cache.Policy, err = cache.ParseKind(conf.CachePolicy)
	if err != nil {
		err = stackerr.Newf("Cache policy parse error: %v", err)
		return
	}
	if conf.CacheCapacity < 1 {
		err = stackerr.Newf("Cache capacity must be positive.")
		return
	}
	sconf.Cache.Capacity = conf.CacheCapacity
	var maxValueSize int64
	maxValueSize, err = parseSize(conf.MaxValueSize)
	if err != nil {
		err = stackerr.Newf("Max value size parse error: %v", err)
		return
	}
	if maxValueSize > server.MaxValueSize {
		err = stackerr.Newf("Too large max value size.")
		return
	}
	sconf.MaxValueSize = int(maxValueSize)
	sconf.Addr = net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port))
	return
}

// Merge overwrites def values with non zero override values.
func Merge(def, override *Config) {
	defVal := reflect.ValueOf(def).Elem()
	overrideVal := reflect.ValueOf(override).Elem()
	for i, end := 0, defVal.NumField(); i < end; i++ {
		overrideVal := overrideVal.Field(i)
		if !util.IsZeroVal(overrideVal) {
			defVal.Field(i).Set(overrideVal)
		}
	}
}

func Marshal(conf *Config) []byte {
	data, err := json.Marshal(conf)
	if err != nil {
		panic(err)
	}
	return data
}

func parseSize(s string) (size int64, err error) {
	if len(s) < 2 {
		err = errors.New("Invalid size format.")
		return
	}
	sep := len(s) - 1
	sizeStr := s[:sep]
	exponentStr := s[sep:]
	var exponent uint32
	switch strings.ToLower(exponentStr) {
	case "b":
		exponent = 0
	case "k":
		exponent = 10
	case "m":
		exponent = 20
	case "g":
		exponent = 30
	default:
		err = errors.New("Invalid exponent. Only 'b', 'k', 'm', 'g' allowed.")
		return
	}
	size, err = strconv.ParseInt(sizeStr, 10, 31)
	if err != nil {
		err = fmt.Errorf("Size parse error: %s", err)
		return
	}
	size <<= exponent
	return
}

func logDestination(dest string) (w io.Writer, err error) {
	switch strings.ToLower(dest) {
	case "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		w, err = os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}
	return
}
