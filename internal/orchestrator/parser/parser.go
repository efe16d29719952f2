// Package parser turns raw model output into an AgentResponse.
//
// Model output is unreliable: it may be wrapped in markdown fences, carry
// prose around the JSON, or be truncated. Parse tries a fixed sequence of
// strategies and returns the first that yields structured data:
//
//  1. direct: the whole (fence-stripped) text is one JSON value
//  2. embedded: the first JSON object inside surrounding prose
//  3. array: the outermost [ {...} ] substring, taken as the action list
//  4. objects: every object-shaped fragment decoded independently
//
// Every decoded element is then validated and normalized. Elements that fail
// validation are dropped and reported in Result.Dropped.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/mitchellh/mapstructure"
)

// Strategy names the layer that recovered the response.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyEmbedded Strategy = "embedded"
	StrategyArray    Strategy = "array"
	StrategyObjects  Strategy = "objects"
)

var (
	fencePattern    = regexp.MustCompile("```(?:json|JSON)?\\s*([\\s\\S]*?)\\s*```")
	arrayPattern    = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	objectStart     = regexp.MustCompile(`\{\s*"`)
	thinkingPattern = regexp.MustCompile(`"thinking"\s*:\s*(true|false)`)
)

// Dropped records one element that did not survive validation.
type Dropped struct {
	Index  int
	Reason string
}

// Result is a successfully parsed model turn.
type Result struct {
	Response models.AgentResponse
	Strategy Strategy
	Dropped  []Dropped
}

// Parse recovers an AgentResponse from raw model text.
// It returns a *ParseError when no strategy yields structured data.
func Parse(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}, &ParseError{Raw: raw, Err: ErrEmptyInput}
	}

	texts := candidates(trimmed)
	var attempts []error
	for _, s := range strategies {
		for _, text := range texts {
			env, err := s.run(text)
			if err != nil {
				attempts = append(attempts, fmt.Errorf("%s: %w", s.name, err))
				continue
			}
			res := Result{Strategy: s.name}
			res.Response.Thinking = env.thinking
			res.Response.Actions, res.Dropped = decodeActions(env.actions)
			return res, nil
		}
	}

	return Result{}, &ParseError{Raw: raw, Err: ErrNoStructuredData, Attempts: attempts}
}

// candidates returns the texts to try, in order: the trimmed input, its
// fence-stripped body, and control-character repaired variants of both.
func candidates(trimmed string) []string {
	out := []string{trimmed}
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	for _, t := range out[:len(out):len(out)] {
		if repaired := escapeControlChars(t); repaired != t {
			out = append(out, repaired)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// envelope is the untyped shape shared by all strategies.
type envelope struct {
	thinking bool
	actions  []any
}

type strategy struct {
	name Strategy
	run  func(text string) (envelope, error)
}

var strategies = []strategy{
	{StrategyDirect, parseDirect},
	{StrategyEmbedded, parseEmbedded},
	{StrategyArray, parseArray},
	{StrategyObjects, parseObjects},
}

func parseDirect(text string) (envelope, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return envelope{}, err
	}
	return fromValue(v, text)
}

func parseEmbedded(text string) (envelope, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return envelope{}, ErrNoObject
	}
	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	if err := dec.Decode(&obj); err != nil {
		return envelope{}, err
	}
	if _, ok := obj["actions"]; !ok {
		if _, ok := obj["thinking"]; !ok {
			return envelope{}, ErrNoEnvelope
		}
	}
	return fromValue(obj, text)
}

func parseArray(text string) (envelope, error) {
	m := arrayPattern.FindString(text)
	if m == "" {
		return envelope{}, ErrNoArray
	}
	var arr []any
	if err := json.Unmarshal([]byte(m), &arr); err != nil {
		return envelope{}, err
	}
	return envelope{thinking: salvageThinking(text), actions: arr}, nil
}

// parseObjects decodes every object that starts at a `{"` position and
// looks like an action. Fragments nested in an already decoded object are
// skipped; fragments that fail to decode are ignored.
func parseObjects(text string) (envelope, error) {
	var actions []any
	consumed := 0
	for _, loc := range objectStart.FindAllStringIndex(text, -1) {
		if loc[0] < consumed {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[loc[0]:]))
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			continue
		}
		if !looksLikeAction(obj) {
			continue
		}
		actions = append(actions, obj)
		consumed = loc[0] + int(dec.InputOffset())
	}
	if len(actions) == 0 {
		return envelope{}, ErrNoObject
	}
	return envelope{thinking: salvageThinking(text), actions: actions}, nil
}

func looksLikeAction(obj map[string]any) bool {
	for k := range obj {
		switch strings.ToLower(k) {
		case "action", "type":
			return true
		}
	}
	return false
}

// fromValue interprets a decoded JSON value as an envelope. A bare array is
// taken as the action list.
func fromValue(v any, text string) (envelope, error) {
	switch t := v.(type) {
	case map[string]any:
		env := envelope{thinking: thinkingValue(t)}
		switch acts := t["actions"].(type) {
		case []any:
			env.actions = acts
		case nil:
		default:
			// Non-array actions are kept as one element so that it is
			// reported as dropped rather than silently ignored.
			env.actions = []any{acts}
		}
		return env, nil
	case []any:
		return envelope{thinking: salvageThinking(text), actions: t}, nil
	default:
		return envelope{}, ErrNoEnvelope
	}
}

// thinkingValue reads the thinking flag, defaulting to true when it is
// absent or not a boolean.
func thinkingValue(obj map[string]any) bool {
	switch v := obj["thinking"].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return true
}

func salvageThinking(text string) bool {
	if m := thinkingPattern.FindStringSubmatch(text); m != nil {
		return m[1] == "true"
	}
	return true
}

func decodeActions(raw []any) ([]models.Action, []Dropped) {
	actions := make([]models.Action, 0, len(raw))
	var dropped []Dropped
	for i, item := range raw {
		ra, err := DecodeRawAction(item)
		if err != nil {
			dropped = append(dropped, Dropped{Index: i, Reason: err.Error()})
			continue
		}
		if ok, reason := ra.Validate(); !ok {
			dropped = append(dropped, Dropped{Index: i, Reason: reason})
			continue
		}
		actions = append(actions, ra.Normalize())
	}
	return actions, dropped
}

// DecodeRawAction decodes one untyped element into a RawAction. Keys are
// matched case-insensitively; a non-string field is a decode error.
func DecodeRawAction(item any) (models.RawAction, error) {
	var ra models.RawAction
	obj, ok := item.(map[string]any)
	if !ok {
		return ra, fmt.Errorf("%w: got %T", ErrNotAnObject, item)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ra,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return ra, err
	}
	if err := dec.Decode(obj); err != nil {
		return ra, fmt.Errorf("decode action: %w", err)
	}
	return ra, nil
}

// escapeControlChars escapes raw newlines, carriage returns and tabs that
// appear inside JSON string literals.
func escapeControlChars(s string) string {
	var b bytes.Buffer
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteString(`\n`)
				continue
			case c == '\r':
				b.WriteString(`\r`)
				continue
			case c == '\t':
				b.WriteString(`\t`)
				continue
			}
		} else if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}
