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
	"deploypilot/app/core/kube"
	"deploypilot/app/core/llm"
	"deploypilot/app/core/replicas"
)

type output struct {
	Namespace  string              `json:"namespace"`
	Deployment string              `json:"deployment"`
	Metrics    kube.Metrics        `json:"metrics"`
	Suggestion replicas.Suggestion `json:"suggestion"`
}

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to runtime config json")
	deployment := flag.String("deployment", "", "deployment name (defaults to config)")
	namespace := flag.String("namespace", "", "kubernetes namespace (defaults to config)")
	traffic := flag.String("traffic", "", "traffic pattern hint: low, normal, high, spike")
	apply := flag.Bool("apply", false, "scale the deployment to the suggested count")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "replica suggestion failed: load config: %v\n", err)
			os.Exit(2)
		}
		cfg = config.DefaultConfig()
	}
	config.ApplyEnvOverrides(&cfg)
	if strings.TrimSpace(*namespace) != "" {
		cfg.Kube.Namespace = *namespace
	}
	if strings.TrimSpace(*deployment) != "" {
		cfg.Kube.Deployment = *deployment
	}
	if strings.TrimSpace(*traffic) != "" {
		cfg.Replicas.TrafficPattern = *traffic
	}

	if err := kube.RequireKubectl(); err != nil {
		fmt.Fprintf(os.Stderr, "replica suggestion failed: %v\n", err)
		os.Exit(2)
	}

	completer, err := llm.NewClient(cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replica suggestion failed: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	client := kube.NewClient(cfg.Kube)
	metrics, err := client.Metrics(ctx, cfg.Kube.Deployment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replica suggestion failed: %v\n", err)
		os.Exit(2)
	}

	suggester := replicas.NewSuggester(completer, cfg.Replicas)
	suggestion, err := suggester.Suggest(ctx, metrics, cfg.Replicas.TrafficPattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replica suggestion failed: %v\n", err)
		os.Exit(2)
	}

	result := output{
		Namespace:  cfg.Kube.Namespace,
		Deployment: cfg.Kube.Deployment,
		Metrics:    metrics,
		Suggestion: suggestion,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "replica suggestion failed: marshal output: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(payload))

	if *apply && suggestion.SuggestedReplicas != metrics.Replicas {
		if err := client.Scale(ctx, cfg.Kube.Deployment, suggestion.SuggestedReplicas); err != nil {
			fmt.Fprintf(os.Stderr, "replica suggestion failed: %v\n", err)
			os.Exit(2)
		}
		fmt.Printf("scaled %s/%s to %d replicas\n", cfg.Kube.Namespace, cfg.Kube.Deployment, suggestion.SuggestedReplicas)
	}
}
