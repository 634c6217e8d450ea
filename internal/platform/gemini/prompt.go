package gemini

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/phrazzld/engage-api/internal/generation"
)

// defaultPrompt is used when no template path is configured.
const defaultPrompt = `Based on the original Reddit post below, write a new Reddit post that joins the discussion.

Requirements:
1. Write in a genuine, conversational tone, like a real person sharing their experience.
2. Do not mention any product by name; describe "a tool" or "a service" you found helpful.
3. Do not include links or URLs.
4. Avoid marketing language such as "check out", "amazing" or "revolutionary".
5. Put the problem first and the solution second.
6. Keep it short: two to four paragraphs.

Subreddit: r/{{.Subreddit}}
Original title: {{.Title}}
Original post:
{{.Content}}

Respond with a JSON object with the fields "title" and "content".
`

// promptData represents the data passed to the prompt template
type promptData struct {
	Title     string
	Content   string
	Subreddit string
	URL       string
}

// loadTemplate parses the template at path, or the built-in prompt when path is empty.
func loadTemplate(path string) (*template.Template, error) {
	text := defaultPrompt
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				generation.ErrInvalidConfig, path, err)
		}
		text = string(raw)
	}

	tmpl, err := template.New("engagement").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, src generation.Source) (string, error) {
	if src.Empty() {
		return "", generation.ErrEmptySource
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData(src)); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
