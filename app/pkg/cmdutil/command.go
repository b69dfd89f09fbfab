package cmdutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// RequireExecutable fails fast when an external tool is missing from PATH.
func RequireExecutable(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty executable name")
	}
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	return nil
}

func Exists(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

func Run(ctx context.Context, name string, args []string, timeout time.Duration) (string, error) {
	return RunWithInput(ctx, name, args, "", timeout)
}

func RunWithInput(ctx context.Context, name string, args []string, input string, timeout time.Duration) (string, error) {
	printCommand(name, args)
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(execCtx, name, args...)
	if strings.TrimSpace(input) != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	output, err := cmd.CombinedOutput()
	outStr := strings.TrimSpace(string(output))
	if err != nil {
		return "", formatCommandError(err, outStr)
	}
	return outStr, nil
}

func printCommand(name string, args []string) {
	fmt.Fprintf(os.Stderr, "[exec] %s", name)
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, " %s", strings.Join(args, " "))
	}
	fmt.Fprintln(os.Stderr)
}

func formatCommandError(err error, output string) error {
	if err == nil {
		return nil
	}
	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	if strings.TrimSpace(output) != "" {
		trimmed, truncated := limitOutputLines(output, 8)
		if truncated {
			return fmt.Errorf("exit code %d: %s\n[output truncated to last 8 lines]", exitCode, trimmed)
		}
		return fmt.Errorf("exit code %d: %s", exitCode, trimmed)
	}
	return fmt.Errorf("exit code %d: %v", exitCode, err)
}

func limitOutputLines(output string, maxLines int) (string, bool) {
	normalized := strings.ReplaceAll(output, "\r\n", "\n")
	normalized = strings.TrimRight(normalized, "\n")
	if normalized == "" {
		return "", false
	}
	lines := strings.Split(normalized, "\n")
	if len(lines) <= maxLines {
		return normalized, false
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n"), true
}
