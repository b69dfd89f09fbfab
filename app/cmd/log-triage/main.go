package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	config "deploypilot/app/configs"
	"deploypilot/app/core/llm"
	"deploypilot/app/core/logsource"
	"deploypilot/app/core/triage"
)

type output struct {
	LogGroup            string          `json:"log_group"`
	HoursBack           int             `json:"hours_back"`
	LogLines            int             `json:"log_lines"`
	Analysis            triage.Analysis `json:"analysis"`
	RollbackRecommended bool            `json:"rollback_recommended"`
}

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to runtime config json")
	logGroup := flag.String("log-group", "", "cloudwatch log group (defaults to config)")
	hoursBack := flag.Int("hours", 0, "log window in hours (defaults to config)")
	failOnRollback := flag.Bool("fail-on-rollback", false, "exit non-zero when rollback is recommended")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "log triage failed: load config: %v\n", err)
			os.Exit(2)
		}
		cfg = config.DefaultConfig()
	}
	config.ApplyEnvOverrides(&cfg)
	if strings.TrimSpace(*logGroup) != "" {
		cfg.Logs.Group = *logGroup
	}
	if *hoursBack > 0 {
		cfg.Logs.HoursBack = *hoursBack
	}

	completer, err := llm.NewClient(cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log triage failed: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	source, err := logsource.NewCloudWatch(ctx, cfg.Logs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log triage failed: %v\n", err)
		os.Exit(2)
	}

	logs, err := source.FetchWindow(ctx, cfg.Logs.HoursBack)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log triage failed: %v\n", err)
		os.Exit(2)
	}
	if strings.TrimSpace(logs) == "" {
		fmt.Println("No logs found (this is normal for new deployments)")
		return
	}

	analyzer := triage.NewAnalyzer(completer, cfg.Logs, cfg.Rollback)
	analysis, err := analyzer.Analyze(ctx, logs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log triage failed: %v\n", err)
		os.Exit(2)
	}

	result := output{
		LogGroup:            cfg.Logs.Group,
		HoursBack:           cfg.Logs.HoursBack,
		LogLines:            len(strings.Split(logs, "\n")),
		Analysis:            analysis,
		RollbackRecommended: analyzer.ShouldRollback(analysis),
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "log triage failed: marshal output: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(payload))

	if result.RollbackRecommended && *failOnRollback {
		os.Exit(1)
	}
}
