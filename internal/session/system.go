package session

import (
	"fmt"
	"strings"
)

const basePrompt = `You are a programming assistant running in a terminal chat client.
Answer clearly and concisely. Prefer short paragraphs and code blocks over
long prose. When you use a tool, explain what you learned from it.`

const tutorPrompt = `You are acting as a patient programming tutor. Explain concepts,
guide with hints and leading questions, and do not hand over complete
solutions when the learner can be guided to them. Break problems into
steps and check understanding before moving on.`

const webSearchPrompt = `You may use the web_search tool to look up current information
when the answer depends on facts you are not certain of.`

// buildInstructions assembles the system prompt for a session from its
// settings and attached tool surface. The result is fixed for the session's
// lifetime.
func buildInstructions(settings Settings, toolNames []string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if settings.TutorMode {
		b.WriteString("\n\n")
		b.WriteString(tutorPrompt)
	}
	if settings.WebSearch {
		b.WriteString("\n\n")
		b.WriteString(webSearchPrompt)
	}
	if len(toolNames) > 0 {
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("The following tools are available from connected servers: %s.", strings.Join(toolNames, ", ")))
	}
	return b.String()
}
