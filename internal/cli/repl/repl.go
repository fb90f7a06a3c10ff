package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"codejudge/internal/cli/command"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/cli/state"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const prompt = "judgectl> "

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	tokenState *state.TokenState
	statePath  string
	prettyJSON bool
	rl         *readline.Instance
	out        io.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, tokenState *state.TokenState, statePath string, prettyJSON bool) *Session {
	return &Session{
		client:     client,
		commands:   commands,
		tokenState: tokenState,
		statePath:  statePath,
		prettyJSON: prettyJSON,
		out:        os.Stdout,
	}
}

// SetOutput redirects printed output.
func (s *Session) SetOutput(w io.Writer) {
	s.out = w
}

// Run reads commands until exit, EOF or a second interrupt on an empty line.
func (s *Session) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyFile,
		AutoComplete:      s.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()
	s.rl = rl
	s.out = rl.Stdout()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		if !s.Execute(ctx, line) {
			return nil
		}
	}
}

// Execute runs one input line and reports whether the session should continue.
func (s *Session) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		s.printLine("error: parse command failed: %v", err)
		return true
	}
	return s.ExecuteArgs(ctx, tokens)
}

// ExecuteArgs runs an already split command.
func (s *Session) ExecuteArgs(ctx context.Context, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	switch tokens[0] {
	case "exit", "quit":
		s.printLine("bye")
		return false
	case "help":
		s.printHelp()
		return true
	case "login":
		s.handleLogin(tokens[1:])
		return true
	case "logout":
		s.handleLogout()
		return true
	case "set":
		s.handleSet(tokens[1:])
		return true
	case "show":
		s.handleShow(tokens[1:])
		return true
	}
	if err := s.handleCommand(ctx, tokens); err != nil {
		s.printLine("error: %v", err)
	}
	return true
}

func (s *Session) handleLogin(args []string) {
	if len(args) != 1 {
		s.printLine("usage: login <access_token>")
		return
	}
	s.storeToken(args[0])
	s.printLine("token updated")
}

func (s *Session) handleLogout() {
	*s.tokenState = state.TokenState{}
	if err := state.Clear(s.statePath); err != nil {
		s.printLine("clear token failed: %v", err)
		return
	}
	s.printLine("token cleared")
}

func (s *Session) storeToken(token string) {
	*s.tokenState = state.NewTokenState(token, s.client.BaseURL(), time.Now())
	if s.tokenState.Expired(time.Now()) {
		s.printLine("warning: token already expired at %s", s.tokenState.ExpiresAt.Format(time.RFC3339))
	}
	if err := state.Save(s.statePath, *s.tokenState); err != nil {
		s.printLine("save token failed: %v", err)
	}
}

func (s *Session) handleSet(args []string) {
	if len(args) < 2 {
		s.printLine("usage: set base|timeout|token <value>")
		return
	}
	switch args[0] {
	case "base":
		s.client.SetBaseURL(args[1])
		s.printLine("base set to %s", s.client.BaseURL())
	case "timeout":
		dur, err := time.ParseDuration(args[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "token":
		s.storeToken(args[1])
		s.printLine("token updated")
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args []string) {
	if len(args) != 1 {
		s.printLine("usage: show token|config")
		return
	}
	switch args[0] {
	case "token":
		s.printLine("token: %s", maskToken(s.tokenState.AccessToken))
		if !s.tokenState.ExpiresAt.IsZero() {
			s.printLine("expires: %s", s.tokenState.ExpiresAt.Format(time.RFC3339))
		}
		if s.tokenState.BaseURL != "" && s.tokenState.BaseURL != s.client.BaseURL() {
			s.printLine("note: token was issued for %s", s.tokenState.BaseURL)
		}
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("tokenStatePath: %s", s.statePath)
	default:
		s.printLine("usage: show token|config")
	}
}

func maskToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	if len(token) > 12 {
		return token[:6] + "..." + token[len(token)-4:]
	}
	return token
}

func (s *Session) handleCommand(ctx context.Context, tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	cmd, ok := s.commands[tokens[0]+" "+tokens[1]]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", tokens[0], tokens[1])
	}
	params, err := command.ParseArgs(cmd.Fields, tokens[2:])
	if err != nil {
		return err
	}
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	return nil
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range command.Missing(cmd, params) {
		if s.rl == nil {
			return fmt.Errorf("%s is required", field.Name)
		}
		s.rl.SetPrompt(field.Prompt + ": ")
		value, err := s.rl.Readline()
		s.rl.SetPrompt(prompt)
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		params.Set(field.Name, strings.TrimSpace(value))
	}
	return nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if env, err := resp.Decode(); err == nil && !env.OK() {
		s.printLine("error %d: %s", env.Code, env.Message)
		if env.TraceID != "" {
			s.printLine("trace_id: %s", env.TraceID)
		}
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) completer() *readline.PrefixCompleter {
	services := map[string][]readline.PrefixCompleterInterface{}
	var order []string
	for _, key := range command.Keys(s.commands) {
		cmd := s.commands[key]
		if _, ok := services[cmd.Service]; !ok {
			order = append(order, cmd.Service)
		}
		services[cmd.Service] = append(services[cmd.Service], readline.PcItem(cmd.Action))
	}
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("login"),
		readline.PcItem("logout"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout"), readline.PcItem("token")),
		readline.PcItem("show", readline.PcItem("token"), readline.PcItem("config")),
	}
	for _, service := range order {
		items = append(items, readline.PcItem(service, services[service]...))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | login <token> | logout | set base|timeout|token | show token|config")
	s.printLine("commands:")
	for _, key := range command.Keys(s.commands) {
		s.printLine("  %s", s.commands[key].Usage)
	}
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
