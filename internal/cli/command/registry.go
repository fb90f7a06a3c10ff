package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Registry returns the console commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "submit",
			Action:       "create",
			Method:       http.MethodPost,
			PathTemplate: "/api/v1/submissions",
			Usage:        "submit create problem_id=1 language=cpp file=./main.cpp",
			Fields: []Field{
				{Name: "problem_id", Aliases: []string{"problem", "pid"}, Prompt: "problem_id", Type: FieldInt64, Required: true},
				{Name: "language", Aliases: []string{"lang", "language_id"}, Prompt: "language", Type: FieldString, Required: true},
				{Name: "code", Aliases: []string{"source_code"}, Prompt: "code", Type: FieldString, Required: true},
				{Name: "file", Aliases: []string{"source_file"}, Prompt: "file", Type: FieldFile},
			},
		},
		{
			Service:      "submit",
			Action:       "status",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/submissions/:id/status",
			Usage:        "submit status 42",
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission_id"}, Prompt: "submission_id", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "submit",
			Action:       "rejudge",
			Method:       http.MethodPost,
			PathTemplate: "/api/v1/submissions/:id/rejudge",
			Usage:        "submit rejudge 42",
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission_id"}, Prompt: "submission_id", Type: FieldInt64, Required: true},
			},
		},
		{
			Service:      "submit",
			Action:       "report",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/submissions/:id/report",
			Usage:        "submit report 42",
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission_id"}, Prompt: "submission_id", Type: FieldInt64, Required: true},
			},
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// Keys returns the registry keys in order.
func Keys(commands map[string]Command) []string {
	keys := make([]string, 0, len(commands))
	for key := range commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Missing lists required fields without a usable value.
func Missing(cmd Command, params Params) []Field {
	var out []Field
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" {
			continue
		}
		// Source code may come from a file instead.
		if field.Name == "code" && params.Get("file") != "" {
			continue
		}
		out = append(out, field)
	}
	return out
}

// BuildRequest creates the HTTP request for cmd.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Key() == "submit create" {
		payload, err := buildSubmitPayload(params)
		if err != nil {
			return RequestSpec{}, err
		}
		body, err = json.Marshal(payload)
		if err != nil {
			return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
		}
	}
	return RequestSpec{Method: cmd.Method, Path: path, Body: body}, nil
}

func buildPath(template string, params Params) (string, error) {
	if !strings.Contains(template, ":id") {
		return template, nil
	}
	value := params.Get("id")
	if value == "" {
		return "", fmt.Errorf("missing path parameter: id")
	}
	id, err := ParseInt64(value)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("invalid submission id: %s", value)
	}
	return strings.ReplaceAll(template, ":id", fmt.Sprint(id)), nil
}

type submitPayload struct {
	ProblemID int64  `json:"problem_id"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

func buildSubmitPayload(params Params) (submitPayload, error) {
	problemID, err := ParseInt64(params.Get("problem_id"))
	if err != nil {
		return submitPayload{}, fmt.Errorf("invalid problem_id: %w", err)
	}
	code := params.Get("code")
	if code == "" && params.Get("file") != "" {
		code, err = ReadFile(params.Get("file"))
		if err != nil {
			return submitPayload{}, err
		}
	}
	if strings.TrimSpace(code) == "" {
		return submitPayload{}, fmt.Errorf("code is required")
	}
	language := strings.TrimSpace(params.Get("language"))
	if language == "" {
		return submitPayload{}, fmt.Errorf("language is required")
	}
	return submitPayload{ProblemID: problemID, Language: language, Code: code}, nil
}
