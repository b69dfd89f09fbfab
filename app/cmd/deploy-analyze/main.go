package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	config "deploypilot/app/configs"
	"deploypilot/app/core/analysis"
	"deploypilot/app/core/kube"
	"deploypilot/app/core/llm"
	"deploypilot/app/core/logsource"
	"deploypilot/app/core/replicas"
	"deploypilot/app/core/triage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to runtime config json")
	deployment := flag.String("deployment", "", "deployment name (defaults to config)")
	namespace := flag.String("namespace", "", "kubernetes namespace (defaults to config)")
	hoursBack := flag.Int("hours", 0, "log window in hours (defaults to config)")
	traffic := flag.String("traffic", "", "traffic pattern hint: low, normal, high, spike")
	outputPath := flag.String("output", filepath.Join("output", "analysis", "report-latest.json"), "path to write the analysis report (use - for stdout)")
	auditDir := flag.String("audit-dir", filepath.Join("output", "analysis"), "directory for the decision audit trail (empty to disable)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deploy analysis failed: load config: %v\n", err)
		os.Exit(2)
	}
	if strings.TrimSpace(*namespace) != "" {
		cfg.Kube.Namespace = *namespace
	}
	if strings.TrimSpace(*deployment) != "" {
		cfg.Kube.Deployment = *deployment
	}
	if *hoursBack > 0 {
		cfg.Logs.HoursBack = *hoursBack
	}
	if strings.TrimSpace(*traffic) != "" {
		cfg.Replicas.TrafficPattern = *traffic
	}

	if err := kube.RequireKubectl(); err != nil {
		fmt.Fprintf(os.Stderr, "deploy analysis failed: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	deps := analysis.Deps{
		Kube: kube.NewClient(cfg.Kube),
	}
	if strings.TrimSpace(*auditDir) != "" {
		deps.Trail = analysis.NewTrail(*auditDir)
	}

	completer, err := llm.NewClient(cfg.Model)
	switch {
	case err == nil:
		deps.Triage = triage.NewAnalyzer(completer, cfg.Logs, cfg.Rollback)
		deps.Replicas = replicas.NewSuggester(completer, cfg.Replicas)
		logs, lerr := logsource.NewCloudWatch(ctx, cfg.Logs)
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "warning: cloudwatch unavailable, log triage will be skipped: %v\n", lerr)
		} else {
			deps.Logs = logs
		}
	case analysis.SkippableCompleterErr(err):
		fmt.Fprintln(os.Stderr, "warning: OPENAI_API_KEY not set, AI stages will be skipped")
	default:
		fmt.Fprintf(os.Stderr, "deploy analysis failed: %v\n", err)
		os.Exit(2)
	}

	report := analysis.Run(ctx, deps, analysis.Options{
		Deployment:     cfg.Kube.Deployment,
		Namespace:      cfg.Kube.Namespace,
		HoursBack:      cfg.Logs.HoursBack,
		TrafficPattern: cfg.Replicas.TrafficPattern,
	})

	if err := writeReport(*outputPath, report); err != nil {
		fmt.Fprintf(os.Stderr, "deploy analysis failed: %v\n", err)
		os.Exit(2)
	}

	if !report.Gate.Passed {
		fmt.Fprintf(os.Stderr, "deploy analysis gate failed; report=%s\n", *outputPath)
		for _, failure := range report.Gate.Failures {
			fmt.Fprintf(os.Stderr, " - %s\n", failure)
		}
		os.Exit(1)
	}
	fmt.Printf("deploy analysis gate passed; report=%s\n", *outputPath)
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return config.Config{}, err
		}
		cfg = config.DefaultConfig()
	}
	config.ApplyEnvOverrides(&cfg)
	return cfg, nil
}

func writeReport(outputPath string, report analysis.Report) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	payload = append(payload, '\n')

	if outputPath == "-" {
		if _, err := os.Stdout.Write(payload); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, payload, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
