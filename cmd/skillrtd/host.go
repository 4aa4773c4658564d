package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"goa.design/skillrt/bridge"
	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/checkpoint/cache"
	"goa.design/skillrt/checkpoint/inmem"
	"goa.design/skillrt/command"
	"goa.design/skillrt/config"
	"goa.design/skillrt/embedding"
	"goa.design/skillrt/kernel"
	"goa.design/skillrt/retriever"
	"goa.design/skillrt/router"
	"goa.design/skillrt/schema"
	"goa.design/skillrt/skill"
	"goa.design/skillrt/telemetry"
	"goa.design/skillrt/toolindex"
	"goa.design/skillrt/workflow"
	"goa.design/skillrt/workflow/engineinmem"
)

// host bundles everything one skillrtd process wires up: the command
// table skills publish into, the kernel that dispatches through it, the
// retriever that searches the index built alongside it, and the engine
// that runs blueprints against the kernel via a Dispatcher adapter.
type host struct {
	cfg        *config.Config
	log        telemetry.Logger
	table      *command.Table
	kernel     *kernel.Kernel
	retriever  *retriever.Retriever
	engine     workflow.Engine
	checkpoints checkpoint.Store
}

func newHost(ctx context.Context) (*host, error) {
	log := telemetry.NewNoopLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	reg := skill.NewRegistry(log)
	if err := reg.Discover(skillsDir); err != nil {
		return nil, fmt.Errorf("discover skills: %w", err)
	}
	tbl := command.NewTable(command.NewSchemaCache(cfg.Cache.SchemaTTL))
	if err := reg.LoadInto(ctx, tbl); err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}

	schemas, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("build schema registry: %w", err)
	}
	k := kernel.New(tbl, schemas, cfg.Execution, kernel.WithLogger(log))

	br, err := bridge.Open(ctx, cfg.Embedding.Dimension, persistPath)
	if err != nil {
		return nil, fmt.Errorf("open bridge: %w", err)
	}
	embedder := embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	ingestor := toolindex.NewIngestor(br, embedder, log)
	if _, err := ingestor.IngestTable(ctx, tbl); err != nil {
		return nil, fmt.Errorf("index commands: %w", err)
	}
	rt := router.New(br, tbl, embedder, cfg.Router, log)
	ret, err := retriever.New(rt, ingestor, tbl, retriever.Options{Schemas: schemas})
	if err != nil {
		return nil, fmt.Errorf("build retriever: %w", err)
	}

	dispatcher := kernel.NewWorkflowDispatcher(k, kernel.CallContext{Skill: "workflow", Grants: []string{"*"}})
	var store checkpoint.Store = inmem.New(0, br.CheckpointRegistry())
	if redisAddr != "" {
		store = cache.New(store, redis.NewClient(&redis.Options{Addr: redisAddr}), 0)
	}
	eng := engineinmem.New(dispatcher, store, cfg.Chunk, cfg.Workflow.MaxConcurrent)

	return &host{
		cfg:         cfg,
		log:         log,
		table:       tbl,
		kernel:      k,
		retriever:   ret,
		engine:      eng,
		checkpoints: store,
	}, nil
}

// echoBlueprint is the one workflow skillrtd runs: a single command node
// calling echo.say with arguments pulled from the initial state.
func echoBlueprint() workflow.Blueprint {
	return workflow.Blueprint{
		Name:       "echo-demo",
		EntryPoint: "say",
		Nodes: map[string]workflow.Node{
			"say": {
				ID:      "say",
				Kind:    workflow.NodeKindCommand,
				Command: "echo.say",
				StateInputMap: map[string]string{
					"text":  "input.text",
					"shout": "input.shout",
				},
			},
		},
	}
}
