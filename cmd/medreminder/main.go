package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/gmsas95/medreminder/internal/app"
	"github.com/gmsas95/medreminder/internal/cli"
	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/logging"
	"github.com/gmsas95/medreminder/internal/store"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		log.Printf("Warning: %v", err)
	}

	flag.Usage = cli.PrintExtendedHelp
	flag.Parse()

	cli.Version = version
	cli.ConfigPath = *configPath

	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "help", "--help", "-h":
		cli.PrintExtendedHelp()
		return
	case "version", "--version", "-v":
		fmt.Printf("Medreminder version %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case "config":
		exitOnError(cli.HandleConfigCommand(args, cfg))
		return
	case "deliverers":
		exitOnError(cli.HandleDeliverersCommand(args, cfg))
		return
	case "next":
		exitOnError(cli.HandleNextCommand(args, cfg))
		return
	case "status":
		cli.HandleStatusCommand(cfg)
		return
	case "doctor":
		if cli.HandleDoctorCommand(cfg) > 0 {
			os.Exit(1)
		}
		return
	}

	application := initApp(cfg, command == "form")
	defer application.Close()

	switch command {
	case "serve":
		application.RunServer()
	case "form":
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Println("The entry screen needs an interactive terminal. Use the HTTP API instead.")
			os.Exit(1)
		}
		exitOnError(application.RunForm())
	case "login":
		exitOnError(cli.HandleLoginCommand(args, application))
	case "logout":
		exitOnError(cli.HandleLogoutCommand(application))
	case "whoami":
		exitOnError(cli.HandleWhoamiCommand(application))
	case "reminders":
		exitOnError(cli.HandleRemindersCommand(args, application))
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		cli.PrintExtendedHelp()
		os.Exit(1)
	}
}

// initApp opens the stores. The entry screen owns the terminal, so its
// logger writes only to the log file.
func initApp(cfg *config.Config, quiet bool) *app.App {
	newLogger := logging.New
	if quiet {
		newLogger = logging.Quiet
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Starting Medreminder",
		zap.String("version", version),
		zap.String("data_dir", cfg.Storage.DataDir),
	)

	st, err := store.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	application, err := app.New(cfg, st, logger, version)
	if err != nil {
		logger.Fatal("Failed to initialize app", zap.Error(err))
	}
	return application
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}
