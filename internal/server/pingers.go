package server

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kwa-go/internal/action"
	"github.com/54b3r/kwa-go/internal/index"
)

// IndexPinger probes the vector index.
type IndexPinger struct {
	Store index.Store
}

func (p IndexPinger) Name() string { return "index" }

func (p IndexPinger) Ping(ctx context.Context) error {
	return p.Store.Ping(ctx)
}

// ModelPinger probes the reasoning model with a minimal generation. Model
// APIs have no uniform health endpoint, so a one-token round trip is the
// portable check.
type ModelPinger struct {
	Model model.ToolCallingChatModel
}

func (p ModelPinger) Name() string { return "model" }

func (p ModelPinger) Ping(ctx context.Context) error {
	_, err := p.Model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	return err
}

// ActionPinger probes the action executor endpoint.
type ActionPinger struct {
	Executor *action.Executor
}

func (p ActionPinger) Name() string { return "actions" }

func (p ActionPinger) Ping(ctx context.Context) error {
	return p.Executor.Ping(ctx)
}
