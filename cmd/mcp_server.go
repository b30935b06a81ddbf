package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samsaffron/tale-llm/internal/llm"
	"github.com/samsaffron/tale-llm/internal/story"
	"github.com/samsaffron/tale-llm/internal/transform"
	"github.com/spf13/cobra"
)

var mcpServerProvider string

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Run as an MCP server exposing transform_story",
	Long: `Run tale-llm as an MCP server over stdio.

The server exposes one tool, transform_story, which rewrites a story with
the configured provider and returns the complete text.`,
	Args: cobra.NoArgs,
	RunE: runMCPServer,
}

func init() {
	mcpServerCmd.Flags().StringVarP(&mcpServerProvider, "provider", "p", "", "Override provider, optionally with model")
	rootCmd.AddCommand(mcpServerCmd)
}

const transformStoryTool = "transform_story"

var transformStorySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "text": {"type": "string", "description": "The story to rewrite"},
    "replacements": {
      "type": "array",
      "description": "Characters to replace, in order",
      "items": {
        "type": "object",
        "properties": {
          "original": {"type": "string"},
          "replacement": {"type": "string"}
        },
        "required": ["original", "replacement"]
      }
    },
    "additional_context": {"type": "string", "description": "Free-form guidance for choosing or adapting characters"}
  },
  "required": ["text"]
}`)

// transformStoryArgs is the tool's input.
type transformStoryArgs struct {
	Text         string `json:"text"`
	Replacements []struct {
		Original    string `json:"original"`
		Replacement string `json:"replacement"`
	} `json:"replacements"`
	AdditionalContext string `json:"additional_context"`
}

func (a transformStoryArgs) request() (story.Request, error) {
	table := story.NewTable()
	for _, r := range a.Replacements {
		if err := table.Update(table.Add(), r.Original, r.Replacement); err != nil {
			return story.Request{}, err
		}
	}
	return story.Request{
		Text:              a.Text,
		Replacements:      table.Pairs(),
		AdditionalContext: a.AdditionalContext,
	}, nil
}

// transformStoryHandler runs the single-shot path. Bad input and generation
// failures are tool errors, not protocol errors.
func transformStoryHandler(provider llm.Provider) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args transformStoryArgs
		raw, err := json.Marshal(req.Params.Arguments)
		if err == nil {
			err = json.Unmarshal(raw, &args)
		}
		if err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		storyReq, err := args.request()
		if err != nil {
			return toolError(err), nil
		}
		text, err := transform.RunOnce(ctx, provider, storyReq)
		if err != nil {
			return toolError(err), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func newMCPServer(provider llm.Provider) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tale-llm",
		Version: Version,
	}, nil)
	server.AddTool(&mcp.Tool{
		Name:        transformStoryTool,
		Description: "Rewrite a story, replacing the named characters and adapting grammar, and return the full rewritten text.",
		InputSchema: transformStorySchema,
	}, transformStoryHandler(provider))
	return server
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	_, provider, err := loadProvider(cmd, mcpServerProvider)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newMCPServer(provider).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
