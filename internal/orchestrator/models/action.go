package models

import (
	"fmt"
	"strings"
)

// ActionKind is the closed set of operations the model may propose.
type ActionKind string

const (
	ActionReadFile        ActionKind = "readFile"
	ActionEditFile        ActionKind = "editFile"
	ActionCreateFile      ActionKind = "createFile"
	ActionDeleteFile      ActionKind = "deleteFile"
	ActionCreateDirectory ActionKind = "createDirectory"
	ActionRemoveDirectory ActionKind = "removeDirectory"
	ActionSearch          ActionKind = "search"
)

// AllActionKinds lists every known kind in prompt order.
var AllActionKinds = []ActionKind{
	ActionReadFile,
	ActionEditFile,
	ActionCreateFile,
	ActionDeleteFile,
	ActionCreateDirectory,
	ActionRemoveDirectory,
	ActionSearch,
}

// kindSynonyms is keyed by the lowercased name with '_' and '-' removed.
var kindSynonyms = map[string]ActionKind{
	"readfile":        ActionReadFile,
	"read":            ActionReadFile,
	"editfile":        ActionEditFile,
	"edit":            ActionEditFile,
	"updatefile":      ActionEditFile,
	"modifyfile":      ActionEditFile,
	"createfile":      ActionCreateFile,
	"writefile":       ActionCreateFile,
	"create":          ActionCreateFile,
	"deletefile":      ActionDeleteFile,
	"removefile":      ActionDeleteFile,
	"delete":          ActionDeleteFile,
	"createdirectory": ActionCreateDirectory,
	"createdir":       ActionCreateDirectory,
	"mkdir":           ActionCreateDirectory,
	"removedirectory": ActionRemoveDirectory,
	"deletedirectory": ActionRemoveDirectory,
	"removedir":       ActionRemoveDirectory,
	"rmdir":           ActionRemoveDirectory,
	"search":          ActionSearch,
	"searchfiles":     ActionSearch,
	"grep":            ActionSearch,
}

// ParseActionKind maps a model-supplied name onto a known kind,
// ignoring case, underscores and hyphens.
func ParseActionKind(s string) (ActionKind, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	k, ok := kindSynonyms[key]
	return k, ok
}

// RequiresContent reports whether the kind carries file content.
func (k ActionKind) RequiresContent() bool {
	return k == ActionEditFile || k == ActionCreateFile
}

// IsGather reports whether the kind only gathers context.
func (k ActionKind) IsGather() bool {
	return k == ActionReadFile || k == ActionSearch
}

// Verb is the human form used in default messages.
func (k ActionKind) Verb() string {
	switch k {
	case ActionReadFile:
		return "read"
	case ActionEditFile:
		return "edit"
	case ActionCreateFile:
		return "create"
	case ActionDeleteFile:
		return "delete"
	case ActionCreateDirectory:
		return "create the directory"
	case ActionRemoveDirectory:
		return "remove the directory"
	case ActionSearch:
		return "search for"
	default:
		return string(k)
	}
}

// Action is a validated, normalized operation proposed by the model.
type Action struct {
	Kind    ActionKind `json:"action"`
	Path    string     `json:"filePath"`
	Content string     `json:"content,omitempty"`
	Message string     `json:"message"`
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Path)
}

// RawAction is an action exactly as decoded from model output.
// Content is a pointer so that absent and empty can be told apart.
type RawAction struct {
	Action    string  `mapstructure:"action"`
	Type      string  `mapstructure:"type"`
	FilePath  string  `mapstructure:"filePath"`
	Path      string  `mapstructure:"path"`
	SnakePath string  `mapstructure:"file_path"`
	Content   *string `mapstructure:"content"`
	Message   string  `mapstructure:"message"`
}

func (r RawAction) kindName() string {
	if r.Action != "" {
		return r.Action
	}
	return r.Type
}

func (r RawAction) rawPath() string {
	switch {
	case r.FilePath != "":
		return r.FilePath
	case r.Path != "":
		return r.Path
	default:
		return r.SnakePath
	}
}

// NormalizePath strips surrounding whitespace and leading "/" and "./".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}

// Validate reports whether r describes a well-formed action: a known kind,
// a non-empty path and content present exactly when the kind requires it.
// It never panics; the returned reason is for logs.
func (r RawAction) Validate() (bool, string) {
	kind, ok := ParseActionKind(r.kindName())
	if !ok {
		return false, fmt.Sprintf("unknown action kind %q", r.kindName())
	}
	if NormalizePath(r.rawPath()) == "" {
		return false, fmt.Sprintf("%s: missing path", kind)
	}
	hasContent := r.Content != nil && *r.Content != ""
	if kind.RequiresContent() && !hasContent {
		return false, fmt.Sprintf("%s %s: missing content", kind, r.rawPath())
	}
	if !kind.RequiresContent() && hasContent {
		return false, fmt.Sprintf("%s %s: unexpected content", kind, r.rawPath())
	}
	return true, ""
}

// Normalize converts a raw action to an Action. Callers must Validate first;
// an unknown kind is passed through verbatim.
func (r RawAction) Normalize() Action {
	kind, ok := ParseActionKind(r.kindName())
	if !ok {
		kind = ActionKind(r.kindName())
	}
	a := Action{
		Kind:    kind,
		Path:    NormalizePath(r.rawPath()),
		Message: strings.TrimSpace(r.Message),
	}
	if r.Content != nil {
		a.Content = *r.Content
	}
	if a.Message == "" {
		a.Message = fmt.Sprintf("I need to %s %s", kind.Verb(), a.Path)
	}
	return a
}

// AgentResponse is one parsed model turn. Thinking means the model
// wants more context; otherwise Actions are to be executed.
type AgentResponse struct {
	Thinking bool     `json:"thinking"`
	Actions  []Action `json:"actions"`
}
