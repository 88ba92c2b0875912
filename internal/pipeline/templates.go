package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fwirtz/amphora/internal/models"
)

// PromptTemplate controls how retrieved context and the question are
// presented to the generator.
type PromptTemplate struct {
	Key         string
	Name        string
	Description string

	instructions string
}

// DefaultTemplate is used when no template (or an unknown one) is requested.
const DefaultTemplate = "balanced"

var templates = map[string]PromptTemplate{
	"precise": {
		Key:         "precise",
		Name:        "Precise",
		Description: "Sticks strictly to the documents, concise answers only",
		instructions: `Answer the question based ONLY on the given context. If the answer cannot be derived from the context,
say "I don't have enough information to answer this question". Provide a direct, concise answer
without adding any speculative information beyond what is explicitly stated in the context.`,
	},
	"balanced": {
		Key:         "balanced",
		Name:        "Balanced",
		Description: "Balances accuracy and fluency, the default mode",
		instructions: `Answer the question based on the given context. If the answer cannot be precisely derived from the context,
try to give a not that accurate but at least not wrong answer, otherwise say "Sorry, I don't know either =-=".`,
	},
	"creative": {
		Key:         "creative",
		Name:        "Creative",
		Description: "Stays grounded in the documents but elaborates with explanations and insights",
		instructions: `Answer the question based on the given context. You may elaborate and provide additional explanations
to make your answer more helpful, but ensure the core information is derived from the context.
If the question cannot be answered from the context, acknowledge this limitation but you may offer
related insights or suggestions based on the available information.`,
	},
}

// Template returns the named prompt template, falling back to the balanced
// default for unknown names.
func Template(name string) PromptTemplate {
	if t, ok := templates[strings.ToLower(name)]; ok {
		return t
	}
	return templates[DefaultTemplate]
}

// Templates returns all available templates sorted by key.
func Templates() []PromptTemplate {
	out := make([]PromptTemplate, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Render builds the full generation prompt from retrieved documents and
// the user question.
func (t PromptTemplate) Render(docs []models.Document, question string) string {
	var b strings.Builder
	b.WriteString(t.instructions)
	b.WriteString("\n\nContext:\n")
	for _, doc := range docs {
		b.WriteString(doc.Content)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s\nAnswer:", question)
	return b.String()
}
