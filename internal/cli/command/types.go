package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt64
	FieldFile
)

// Field defines a command input field.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Type     FieldType
	Required bool
}

// Command binds a console command to an API route.
type Command struct {
	Service      string
	Action       string
	Method       string
	PathTemplate string
	Usage        string
	Fields       []Field
}

// Key is the lookup key of the command.
func (c Command) Key() string {
	return c.Service + " " + c.Action
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method string
	Path   string
	Body   []byte
}

// Params holds parsed input params. Keys are case-insensitive.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

// Canonicalize renames aliased keys to their field names.
func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// ParseArgs turns key=value tokens into Params. A bare token fills the first
// field that has no value yet, so "submit status 42" works.
func ParseArgs(fields []Field, tokens []string) (Params, error) {
	params := Params{}
	var positional []string
	for _, token := range tokens {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			positional = append(positional, token)
			continue
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(fields)
	for _, value := range positional {
		placed := false
		for _, field := range fields {
			if field.Type == FieldFile || params.Has(field.Name) {
				continue
			}
			params.Set(field.Name, value)
			placed = true
			break
		}
		if !placed {
			return nil, fmt.Errorf("unexpected argument: %s", value)
		}
	}
	return params, nil
}

func ParseInt64(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}
