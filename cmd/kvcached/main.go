package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/rahultewari75/cache/cmd/kvcached/config"
	"github.com/rahultewari75/cache/internal/tag"
	"github.com/rahultewari75/cache/log"
	"github.com/rahultewari75/cache/server"
)

const usage = `
Config values merge rules:
1) config file value overrides default
2) command line value overrides any
Options:
`

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s", usage)
		flag.PrintDefaults()
	}
}

func main() {
	l := log.NewLogger(log.InfoLevel, os.Stderr)
	conf, err := config.Parse(fileConfig(l))
	if err != nil {
		l.Fatal("Config error: ", err)
	}
	s, err := server.NewServer(conf)
	if err != nil {
		l.Fatal("Server construction error: ", err)
	}
	l.Debugf("Config: %#v", conf)
	if tag.Debug {
		l.Warn("Using debug build. It has more runtime checks and large perfomance overhead.")
	}

	l.Infof("Serve on %s.", s.Addr)
	err = s.ListenAndServe()
	l.Fatal("Serve error: ", err)
}

// fileConfig parses command flags, reads config file if any, returns
// merged config. Config values merge rules:
// 1) config file value overrides default
// 2) command line value overrides any
func fileConfig(l log.Logger) *config.Config {
	flg := parseFlags()
	conf := config.Default()
	if flg.ConfigPath != "" {
		data, err := ioutil.ReadFile(flg.ConfigPath)
		if err != nil {
			l.Fatal("Config file read error: ", err)
		}
		fileConf := &config.Config{}
		err = json.Unmarshal(data, fileConf)
		if err != nil {
			l.Fatal("Config parse error: ", err)
		}
		config.Merge(conf, fileConf)
	}
	config.Merge(conf, &flg.Config)
	return conf
}

type Flags struct {
	ConfigPath string
	config.Config
}

func parseFlags() Flags {
	var f Flags
	flag.StringVar(&f.ConfigPath, "config", "", "path to json config")

	def := config.Default()
	usage := func(usage string, defVal interface{}) string {
		if _, ok := defVal.(string); ok {
			usage += fmt.Sprintf(" (default %q)", defVal)
		} else {
			usage += fmt.Sprintf(" (default %v)", defVal)
		}
		return usage
	}
	flag.StringVar(&f.Host, "host", "", usage("host address to bind", def.Host))
	flag.IntVar(&f.Port, "port", 0, usage("port num", def.Port))
	flag.StringVar(&f.LogDestination, "log-destination", "", usage("log destination: stderr, stdout or file path", def.LogDestination))
	flag.StringVar(&f.LogLevel, "log-level", "", usage("log level: debug, info, warn, error, fatal", def.LogLevel))
	flag.StringVar(&f.CachePolicy, "cache-policy", "", usage("eviction policy: lru, lfu, random", def.CachePolicy))
	flag.IntVar(&f.CacheCapacity, "cache-capacity", 0, usage("max number of cached items", def.CacheCapacity))
	flag.StringVar(&f.MaxValueSize, "max-value-size", "", usage("max value size: 10m, 1024k", def.MaxValueSize))
	flag.Parse()
	return f
}
