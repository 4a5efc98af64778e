package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/va6996/tokenagent/bootstrap"
	"github.com/va6996/tokenagent/config"
	reqctx "github.com/va6996/tokenagent/context"
	"github.com/va6996/tokenagent/log"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level, cfg.Log.Format)
	log.SetOutput(os.Stderr)

	query, err := readQuery(os.Args[1:], os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := reqctx.WithRequestID(context.Background(), reqctx.NewRequestID())
	app, err := bootstrap.SetupAgent(ctx, cfg)
	if err != nil {
		log.Fatalf(ctx, "Setup failed: %v", err)
	}

	answer, err := app.TokenAgent.Run(ctx, query)
	if err != nil {
		fmt.Printf("An error occurred: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(answer.Reply)
	if len(answer.ToolCalls) > 0 {
		fmt.Fprintln(os.Stderr, "\n=== TOOL CALLS ===")
		for i, call := range answer.ToolCalls {
			out, _ := json.Marshal(call.Output)
			fmt.Fprintf(os.Stderr, "  Call %d: %s %v -> %s\n", i+1, call.ToolName, call.Input, out)
		}
	}
}

// readQuery joins the arguments, or reads stdin when there are none
func readQuery(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		if q := strings.TrimSpace(strings.Join(args, " ")); q != "" {
			return q, nil
		}
	}

	var lines []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read query: %w", err)
	}

	q := strings.TrimSpace(strings.Join(lines, "\n"))
	if q == "" {
		return "", fmt.Errorf("usage: tokenagent-cli <query>  (or pipe the query on stdin)")
	}
	return q, nil
}
