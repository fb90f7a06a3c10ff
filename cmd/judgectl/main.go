package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"codejudge/internal/cli/command"
	"codejudge/internal/cli/config"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/cli/repl"
	"codejudge/internal/cli/state"
)

const defaultConfigPath = "configs/judgectl.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	token := flag.String("token", "", "Override access token")
	statePath := flag.String("state", "", "Override token state path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.TokenStatePath = *statePath
	}

	tokenState, err := state.Load(cfg.TokenStatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load token state failed: %v\n", err)
		os.Exit(1)
	}
	if *token != "" {
		tokenState = state.NewTokenState(*token, cfg.BaseURL, time.Now())
	}
	if tokenState.Expired(time.Now()) {
		fmt.Fprintln(os.Stderr, "stored token has expired, use login <token>")
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout, func() string {
		return tokenState.AccessToken
	})
	session := repl.New(client, command.Registry(), &tokenState, cfg.TokenStatePath, *cfg.PrettyJSON)

	// Non-interactive: judgectl submit status 42
	if args := flag.Args(); len(args) > 0 {
		session.ExecuteArgs(context.Background(), args)
		return
	}
	if err := session.Run(context.Background(), cfg.HistoryFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
