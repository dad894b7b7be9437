package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 && os.Args[1] == "init" {
		initCmd := flag.NewFlagSet("init", flag.ExitOnError)
		initCmd.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: droptea init [flags]\n\nCreate a config file interactively.\n\nFlags:\n")
			initCmd.PrintDefaults()
		}
		out := initCmd.String("config", "droptea.yaml", "where to write the config file")
		_ = initCmd.Parse(os.Args[2:])

		if err := runInit(*out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		return
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: droptea [flags]\n       droptea <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  init  Create a config file interactively\n")
	}

	configPath := flag.String("config", "", "path to configuration file (default: droptea.yaml if it exists)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	devMode := flag.Bool("dev", false, "run against the loopback core instead of the network")
	debug := flag.Bool("debug", false, "log debug output to the console")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath, *devMode, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
