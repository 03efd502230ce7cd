package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptFrontmatter is the YAML header of an embedded prompt file.
type promptFrontmatter struct {
	Description string `yaml:"description"`
}

// registerPrompts exposes every embedded prompts/*.md file as an MCP
// prompt. The file name without extension becomes the prompt name.
func (s *Server) registerPrompts() {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return
	}

	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".md")
		if !ok || entry.IsDir() {
			continue
		}

		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			continue
		}

		description, body := parseFrontmatter(content)
		s.server.AddPrompt(
			&mcp.Prompt{Name: name, Description: description},
			makePromptHandler(description, body),
		)
	}
}

// parseFrontmatter splits a prompt file into its frontmatter description
// and markdown body. Files without a well-formed header are returned
// whole with an empty description.
func parseFrontmatter(content []byte) (description string, body string) {
	after, ok := bytes.CutPrefix(content, []byte("---\n"))
	if !ok {
		return "", string(content)
	}

	meta, rest, ok := bytes.Cut(after, []byte("\n---\n"))
	if !ok {
		return "", string(content)
	}

	var fm promptFrontmatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return "", string(content)
	}

	return fm.Description, strings.TrimPrefix(string(rest), "\n")
}

func makePromptHandler(description, body string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		msg := &mcp.PromptMessage{
			Role:    "user",
			Content: &mcp.TextContent{Text: body},
		}
		return &mcp.GetPromptResult{
			Description: description,
			Messages:    []*mcp.PromptMessage{msg},
		}, nil
	}
}
