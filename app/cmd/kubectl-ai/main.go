package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	config "deploypilot/app/configs"
	"deploypilot/app/core/kubecmd"
	"deploypilot/app/core/llm"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to runtime config json")
	allowDestructive := flag.Bool("allow-destructive", false, "allow delete/drain commands in the output")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: kubectl-ai [flags] <natural language query>")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "kubectl-ai failed: load config: %v\n", err)
			os.Exit(2)
		}
		cfg = config.DefaultConfig()
	}
	config.ApplyEnvOverrides(&cfg)

	completer, err := llm.NewClient(cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kubectl-ai failed: %v\n", err)
		os.Exit(2)
	}

	generator := kubecmd.NewGenerator(completer, *allowDestructive)
	command, err := generator.Generate(context.Background(), query)
	if err != nil {
		if errors.Is(err, kubecmd.ErrDestructiveCommand) {
			fmt.Fprintf(os.Stderr, "kubectl-ai refused: %v (rerun with -allow-destructive)\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "kubectl-ai failed: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(command)
}
