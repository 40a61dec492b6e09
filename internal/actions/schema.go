package actions

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaSource holds the JSON Schema text for one action kind. Each schema
// only constrains the fields that kind actually uses; unknown top-level
// fields are tolerated by the schema itself (extra-field rejection is not a
// goal — forward-compatible documents should still validate) but unknown
// kinds are rejected before a schema lookup ever happens, in Validate.
var schemaSource = map[ActionKind]string{
	WaitForSelector: `{
		"type": "object",
		"required": ["action", "selector"],
		"properties": {
			"action": {"const": "waitForSelector"},
			"selector": {"type": "string", "minLength": 1},
			"timeout": {"type": "integer", "minimum": 0}
		}
	}`,
	Click: `{
		"type": "object",
		"required": ["action", "selector"],
		"properties": {
			"action": {"const": "click"},
			"selector": {"type": "string", "minLength": 1},
			"timeout": {"type": "integer", "minimum": 0}
		}
	}`,
	Type: `{
		"type": "object",
		"required": ["action", "selector", "text"],
		"properties": {
			"action": {"const": "type"},
			"selector": {"type": "string", "minLength": 1},
			"text": {"type": "string"},
			"timeout": {"type": "integer", "minimum": 0}
		}
	}`,
	Select: `{
		"type": "object",
		"required": ["action", "selector", "value"],
		"properties": {
			"action": {"const": "select"},
			"selector": {"type": "string", "minLength": 1},
			"value": {"type": "string"}
		}
	}`,
	WaitForNavigation: `{
		"type": "object",
		"required": ["action"],
		"properties": {
			"action": {"const": "waitForNavigation"},
			"timeout": {"type": "integer", "minimum": 0},
			"waitUntil": {"type": "string", "enum": ["load", "networkidle"]}
		}
	}`,
	Sleep: `{
		"type": "object",
		"required": ["action", "ms"],
		"properties": {
			"action": {"const": "sleep"},
			"ms": {"type": "integer", "minimum": 0, "maximum": 30000}
		}
	}`,
	ScrollTo: `{
		"type": "object",
		"required": ["action"],
		"properties": {
			"action": {"const": "scrollTo"},
			"selector": {"type": "string"},
			"y": {"type": "integer"}
		}
	}`,
	AssertSelector: `{
		"type": "object",
		"required": ["action", "selector"],
		"properties": {
			"action": {"const": "assertSelector"},
			"selector": {"type": "string", "minLength": 1},
			"visible": {"type": "boolean"},
			"count": {"type": "integer", "minimum": 0}
		}
	}`,
	AssertText: `{
		"type": "object",
		"required": ["action", "selector", "text"],
		"properties": {
			"action": {"const": "assertText"},
			"selector": {"type": "string", "minLength": 1},
			"text": {"type": "string"},
			"contains": {"type": "boolean"}
		}
	}`,
	AssertURL: `{
		"type": "object",
		"required": ["action", "pattern"],
		"properties": {
			"action": {"const": "assertUrl"},
			"pattern": {"type": "string", "minLength": 1},
			"contains": {"type": "boolean"}
		}
	}`,
	AssertTitle: `{
		"type": "object",
		"required": ["action", "pattern"],
		"properties": {
			"action": {"const": "assertTitle"},
			"pattern": {"type": "string", "minLength": 1},
			"contains": {"type": "boolean"}
		}
	}`,
	Assert: `{
		"type": "object",
		"required": ["action", "expression"],
		"properties": {
			"action": {"const": "assert"},
			"expression": {"type": "string", "minLength": 1},
			"message": {"type": "string"}
		}
	}`,
}

var (
	compileOnce sync.Once
	compiled    map[ActionKind]*jsonschema.Schema
	compileErr  error
)

func compiledSchemas() (map[ActionKind]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		for kind, src := range schemaSource {
			url := fmt.Sprintf("mem://actions/%s.json", kind)
			if err := c.AddResource(url, bytes.NewReader([]byte(src))); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", kind, err)
				return
			}
		}
		compiled = make(map[ActionKind]*jsonschema.Schema, len(schemaSource))
		for kind := range schemaSource {
			url := fmt.Sprintf("mem://actions/%s.json", kind)
			s, err := c.Compile(url)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", kind, err)
				return
			}
			compiled[kind] = s
		}
	})
	return compiled, compileErr
}
