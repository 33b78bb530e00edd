package posts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/agentstep/domain/tool"
)

func execute(t *testing.T, tl tool.Tool, input string) (json.RawMessage, error) {
	t.Helper()
	res, err := tl.Execute(context.Background(), json.RawMessage(input))
	return res.Output, err
}

func mustTool(t *testing.T, cfg PackConfig, name string) tool.Tool {
	t.Helper()
	tl, ok := New(cfg).GetTool(name)
	if !ok {
		t.Fatalf("tool %s not found", name)
	}
	return tl
}

func TestNew(t *testing.T) {
	t.Parallel()

	p := New(PackConfig{})
	if p.Name != "posts" {
		t.Errorf("expected pack name 'posts', got %s", p.Name)
	}

	want := []string{"create-post-draft", "get-post", "list-posts", "update-post", "publish-post"}
	names := p.ToolNames()
	if len(names) != len(want) {
		t.Fatalf("ToolNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ToolNames()[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	publish, _ := p.GetTool("publish_post")
	if !publish.Annotations().Destructive {
		t.Error("publish-post should be destructive")
	}
	get, _ := p.GetTool("get_post")
	if !get.Annotations().ReadOnly {
		t.Error("get-post should be read-only")
	}
}

func TestDraftLifecycle(t *testing.T) {
	t.Parallel()

	cfg := PackConfig{Repository: NewMemoryRepository(), Capabilities: []string{CapabilityPublish}}

	out, err := execute(t, mustTool(t, cfg, "create-post-draft"), `{"title":"Hello","content":"World"}`)
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	var created Post
	if err := json.Unmarshal(out, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID != 1 || created.Status != StatusDraft || created.Title != "Hello" {
		t.Errorf("created = %+v", created)
	}

	if _, err := execute(t, mustTool(t, cfg, "update-post"), `{"id":1,"title":"Hello, Go"}`); err != nil {
		t.Fatalf("update error = %v", err)
	}

	out, err = execute(t, mustTool(t, cfg, "get-post"), `{"id":1}`)
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	var got Post
	_ = json.Unmarshal(out, &got)
	if got.Title != "Hello, Go" || got.Content != "World" {
		t.Errorf("got = %+v", got)
	}

	publish := mustTool(t, cfg, "publish-post")
	if perm := publish.CheckPermission(context.Background(), json.RawMessage(`{"id":1}`)); !perm.Allowed {
		t.Fatalf("publish denied: %s", perm.Reason)
	}
	out, err = execute(t, publish, `{"id":1}`)
	if err != nil {
		t.Fatalf("publish error = %v", err)
	}
	var published Post
	_ = json.Unmarshal(out, &published)
	if published.Status != StatusPublished || published.PublishedAt == nil {
		t.Errorf("published = %+v", published)
	}
	if _, err := execute(t, publish, `{"id":1}`); !errors.Is(err, ErrAlreadyPublished) {
		t.Errorf("second publish error = %v, want ErrAlreadyPublished", err)
	}

	out, err = execute(t, mustTool(t, cfg, "list-posts"), `{"status":"published"}`)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	var listed struct {
		Posts []Post `json:"posts"`
		Count int    `json:"count"`
	}
	_ = json.Unmarshal(out, &listed)
	if listed.Count != 1 || listed.Posts[0].ID != 1 {
		t.Errorf("listed = %+v", listed)
	}
}

func TestPublishRequiresCapability(t *testing.T) {
	t.Parallel()

	publish := mustTool(t, PackConfig{}, "publish-post")
	perm := publish.CheckPermission(context.Background(), json.RawMessage(`{"id":1}`))
	if perm.Allowed {
		t.Fatal("publish should be denied without capability")
	}
	if perm.Reason != "missing capability: publish" {
		t.Errorf("Reason = %q", perm.Reason)
	}
}

func TestToolErrors(t *testing.T) {
	t.Parallel()

	cfg := PackConfig{Repository: NewMemoryRepository()}

	tests := []struct {
		name    string
		tool    string
		input   string
		wantErr error
	}{
		{"missing title", "create-post-draft", `{}`, tool.ErrInvalidInput},
		{"empty title", "create-post-draft", `{"title":""}`, tool.ErrInvalidInput},
		{"unknown post", "get-post", `{"id":42}`, ErrPostNotFound},
		{"id must be integer", "get-post", `{"id":"one"}`, tool.ErrInvalidInput},
		{"bad status", "list-posts", `{"status":"archived"}`, tool.ErrInvalidInput},
		{"update without fields", "update-post", `{"id":1}`, ErrInvalidInput},
		{"update unknown", "update-post", `{"id":9,"title":"x"}`, ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, mustTool(t, cfg, tt.tool), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemoryRepository_ListOrderAndFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, title := range []string{"a", "b", "c"} {
		if _, err := repo.Create(ctx, title, ""); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.Publish(ctx, 2); err != nil {
		t.Fatal(err)
	}

	all, _ := repo.List(ctx, "")
	if len(all) != 3 || all[0].ID != 1 || all[2].ID != 3 {
		t.Errorf("List() = %+v", all)
	}
	drafts, _ := repo.List(ctx, StatusDraft)
	if len(drafts) != 2 {
		t.Errorf("List(draft) = %d posts, want 2", len(drafts))
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := repo.Get(canceled, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}
