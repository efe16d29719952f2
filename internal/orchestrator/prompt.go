package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	provider "github.com/Cyclone1070/kosuke/internal/provider/models"
)

const systemPromptTemplate = `You are an expert web developer working inside an existing project.
You change the project only by answering with a single JSON object:

{"thinking": true, "actions": [{"action": "readFile", "filePath": "app/page.tsx", "message": "I will read the page to see its layout"}]}

Set "thinking" to true while you still need to read files or search the project.
Only readFile and search actions run while thinking. Set "thinking" to false
once you know what to change and list every change in "actions"; they run in
the order given and stop at the first failure.

Available actions:
%s

Rules:
- filePath is relative to the project root.
- createFile and editFile carry the complete new file in "content".
- Never read a file listed under "Already Read Files"; its content is already in the context.
- Write each "message" in the future tense, describing what you will do.
- Answer with the JSON object only, without prose or markdown fences.`

const forcedDirective = `Stop gathering context. You have already read every file you need.
Respond now with "thinking": false and the complete list of actions that implement the request.
Do not include readFile or search actions.`

const summarySystemPrompt = `You summarize code changes for the user who requested them.
Answer in two or three plain sentences, in the past tense, without markdown headings or code.`

const userRequestHeader = "### User Request"

// systemPrompt renders the agent instructions with the registered tools.
func systemPrompt(descriptions []string) string {
	lines := make([]string, len(descriptions))
	for i, d := range descriptions {
		lines[i] = "- " + d
	}
	return fmt.Sprintf(systemPromptTemplate, strings.Join(lines, "\n"))
}

// buildMessages returns the most recent history turns followed by one user
// message holding the context and the request.
func buildMessages(history []models.Message, limit int, contextText, prompt string) []models.Message {
	if limit >= 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	msgs := make([]models.Message, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	return append(msgs, models.Message{
		Role:    models.RoleUser,
		Content: strings.TrimRight(contextText, "\n") + "\n\n" + userRequestHeader + "\n" + strings.TrimSpace(prompt),
	})
}

// summaryRequest asks the summary model to describe the applied actions.
func summaryRequest(model string, maxTokens int, prompt string, actions []models.Action) *provider.GenerateRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\nApplied changes:\n", strings.TrimSpace(prompt))
	for _, a := range actions {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	return &provider.GenerateRequest{
		SystemPrompt: summarySystemPrompt,
		Messages:     []models.Message{{Role: models.RoleUser, Content: b.String()}},
		Model:        model,
		Config:       &provider.GenerateConfig{MaxOutputTokens: &maxTokens},
	}
}

// fallbackSummary describes the applied actions without a model call.
func fallbackSummary(actions []models.Action) string {
	if len(actions) == 0 {
		return "No changes were needed."
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = fmt.Sprintf("%s %s", pastTense(a.Kind), a.Path)
	}
	noun := "changes"
	if len(actions) == 1 {
		noun = "change"
	}
	return fmt.Sprintf("Applied %d %s: %s.", len(actions), noun, strings.Join(parts, ", "))
}

func pastTense(k models.ActionKind) string {
	switch k {
	case models.ActionCreateFile:
		return "created"
	case models.ActionEditFile:
		return "edited"
	case models.ActionDeleteFile:
		return "deleted"
	case models.ActionCreateDirectory:
		return "created directory"
	case models.ActionRemoveDirectory:
		return "removed directory"
	case models.ActionReadFile:
		return "read"
	case models.ActionSearch:
		return "searched for"
	default:
		return string(k)
	}
}
