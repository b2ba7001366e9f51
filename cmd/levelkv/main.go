package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"

	"github.com/kezhuw/levelkv"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".exit"),
	readline.PcItem("PUT"),
	readline.PcItem("GET"),
	readline.PcItem("DELETE"),
	readline.PcItem("EXISTS"),
	readline.PcItem("SIZE"),
	readline.PcItem("SCAN"),
	readline.PcItem("RSCAN"),
	readline.PcItem("SNAPSHOT"),
	readline.PcItem("RELEASE"),
	readline.PcItem("SGET"),
	readline.PcItem("SSCAN"),
	readline.PcItem("BEGIN"),
	readline.PcItem("COMMIT"),
	readline.PcItem("ROLLBACK"),
)

var (
	configFile = flag.String("config", "", "path to a TOML config file")
	engineName = flag.String("engine", "", "storage engine: "+strings.Join(levelkv.Engines(), ", "))
	logLevel   = flag.String("log-level", "", "log level")
	logFormat  = flag.String("log-format", "", "log format: console or json")
)

func loadConfig() (*Config, error) {
	cfg := NewDefaultConfig()
	if *configFile != "" {
		if err := cfg.LoadFromFile(*configFile); err != nil {
			return nil, err
		}
	}
	if *engineName != "" {
		cfg.Engine = *engineName
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if flag.NArg() > 0 {
		cfg.Path = flag.Arg(0)
	}
	if err := cfg.adjust(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, errors.New("no database path given")
	}
	return cfg, nil
}

func openDB(cfg *Config, logOut io.Writer) (*levelkv.DB, error) {
	opts, err := levelkv.ParseOptions(cfg.openOptions())
	if err != nil {
		return nil, err
	}
	opts.Logger = levelkv.NewLogger(cfg.newLogger(logOut))
	return levelkv.Open(cfg.Path, opts)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] database_path\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		flag.Usage()
		os.Exit(2)
	}
	db, err := openDB(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database %s: %s\n", cfg.Path, err)
		os.Exit(1)
	}
	defer db.Close()

	runInteractive(db)
}

func runInteractive(db *levelkv.DB) {
	fmt.Printf("levelkv (%s) %s\n", db.Options().Engine, db.Path())
	fmt.Println("Enter .help for usage hints.")

	historyFile := filepath.Join(os.TempDir(), ".levelkv_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "levelkv> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	s := newSession(db, rl.Stdout())
	defer s.close()
	for {
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt && len(line) != 0 {
				continue
			}
			// io.EOF or an interrupt on an empty line.
			break
		}
		if !s.execute(line) {
			break
		}
	}
}
