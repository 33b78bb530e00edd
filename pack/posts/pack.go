package posts

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/felixgeelhaar/agentstep/domain/pack"
	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// CapabilityPublish allows the publish-post tool to run.
const CapabilityPublish = "publish"

// PackConfig configures the posts pack.
type PackConfig struct {
	// Repository stores posts. Defaults to a fresh MemoryRepository.
	Repository Repository

	// Capabilities granted to the caller, e.g. CapabilityPublish.
	Capabilities []string
}

// New creates the posts pack.
func New(cfg PackConfig) *pack.Pack {
	if cfg.Repository == nil {
		cfg.Repository = NewMemoryRepository()
	}

	return pack.NewBuilder("posts").
		WithDescription("Tools for drafting and publishing blog posts").
		WithVersion("1.0.0").
		AddTools(
			createDraftTool(cfg),
			getTool(cfg),
			listTool(cfg),
			updateTool(cfg),
			publishTool(cfg),
		).
		Build()
}

func result(v any) (tool.Result, error) {
	return tool.JSONResult(v)
}

// createDraftTool creates the create-post-draft tool.
func createDraftTool(cfg PackConfig) tool.Tool {
	return tool.NewBuilder("create-post-draft").
		WithDescription("Create a new draft blog post").
		WithTags("posts", "write").
		WithInputSchema(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "minLength": 1, "description": "Post title"},
				"content": {"type": "string", "description": "Post body"}
			},
			"required": ["title"]
		}`).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var req struct {
				Title   string `json:"title"`
				Content string `json:"content"`
			}
			if err := json.Unmarshal(input, &req); err != nil {
				return tool.Result{}, err
			}

			post, err := cfg.Repository.Create(ctx, req.Title, req.Content)
			if err != nil {
				return tool.Result{}, err
			}
			return result(post)
		}).
		MustBuild()
}

// getTool creates the get-post tool.
func getTool(cfg PackConfig) tool.Tool {
	return tool.NewBuilder("get-post").
		WithDescription("Get a blog post by id").
		ReadOnly().
		WithTags("posts", "read").
		WithInputSchema(`{
			"type": "object",
			"properties": {
				"id": {"type": "integer", "minimum": 1}
			},
			"required": ["id"]
		}`).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var req struct {
				ID int `json:"id"`
			}
			if err := json.Unmarshal(input, &req); err != nil {
				return tool.Result{}, err
			}

			post, err := cfg.Repository.Get(ctx, req.ID)
			if err != nil {
				return tool.Result{}, err
			}
			return result(post)
		}).
		MustBuild()
}

// listTool creates the list-posts tool.
func listTool(cfg PackConfig) tool.Tool {
	return tool.NewBuilder("list-posts").
		WithDescription("List blog posts, optionally filtered by status").
		ReadOnly().
		WithTags("posts", "read").
		WithInputSchema(`{
			"type": "object",
			"properties": {
				"status": {"type": "string", "enum": ["draft", "published"]}
			}
		}`).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var req struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(input, &req); err != nil {
				return tool.Result{}, err
			}

			list, err := cfg.Repository.List(ctx, req.Status)
			if err != nil {
				return tool.Result{}, err
			}
			return result(map[string]any{"posts": list, "count": len(list)})
		}).
		MustBuild()
}

// updateTool creates the update-post tool.
func updateTool(cfg PackConfig) tool.Tool {
	return tool.NewBuilder("update-post").
		WithDescription("Update the title or content of a blog post").
		Idempotent().
		WithTags("posts", "write").
		WithInputSchema(`{
			"type": "object",
			"properties": {
				"id": {"type": "integer", "minimum": 1},
				"title": {"type": "string", "minLength": 1},
				"content": {"type": "string"}
			},
			"required": ["id"]
		}`).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var req struct {
				ID      int     `json:"id"`
				Title   *string `json:"title"`
				Content *string `json:"content"`
			}
			if err := json.Unmarshal(input, &req); err != nil {
				return tool.Result{}, err
			}
			if req.Title == nil && req.Content == nil {
				return tool.Result{}, ErrInvalidInput
			}

			post, err := cfg.Repository.Update(ctx, req.ID, Update{Title: req.Title, Content: req.Content})
			if err != nil {
				return tool.Result{}, err
			}
			return result(post)
		}).
		MustBuild()
}

// publishTool creates the publish-post tool. It is denied unless the
// caller holds CapabilityPublish.
func publishTool(cfg PackConfig) tool.Tool {
	allowed := slices.Contains(cfg.Capabilities, CapabilityPublish)

	return tool.NewBuilder("publish-post").
		WithDescription("Publish a draft blog post").
		Destructive().
		WithTags("posts", "publish").
		WithInputSchema(`{
			"type": "object",
			"properties": {
				"id": {"type": "integer", "minimum": 1}
			},
			"required": ["id"]
		}`).
		WithPermission(func(context.Context, json.RawMessage) tool.Permission {
			if !allowed {
				return tool.Deny("missing capability: " + CapabilityPublish)
			}
			return tool.Allow()
		}).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var req struct {
				ID int `json:"id"`
			}
			if err := json.Unmarshal(input, &req); err != nil {
				return tool.Result{}, err
			}

			post, err := cfg.Repository.Publish(ctx, req.ID)
			if err != nil {
				return tool.Result{}, err
			}
			return result(post)
		}).
		MustBuild()
}
