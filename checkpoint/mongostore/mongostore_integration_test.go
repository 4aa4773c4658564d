package mongostore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/skillrt/checkpoint"
	"goa.design/skillrt/checkpoint/mongostore"
)

var (
	testClient      *mongo.Client
	testContainer   testcontainers.Container
	skipMongoTests  bool
)

// setupMongo starts a disposable MongoDB container the first time a test
// needs one. Docker not being available degrades to skipping every test in
// this file rather than failing the suite, matching how the teacher's own
// Mongo-backed store tests behave in a sandbox without a Docker daemon.
func setupMongo(t *testing.T) {
	t.Helper()
	if testClient != nil || skipMongoTests {
		return
	}
	ctx := context.Background()

	func() {
		defer func() {
			if r := recover(); r != nil {
				skipMongoTests = true
			}
		}()
		req := testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
			Tmpfs:        map[string]string{"/data/db": "rw"},
		}
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			skipMongoTests = true
			return
		}
		testContainer = c
	}()
	if skipMongoTests {
		return
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		skipMongoTests = true
		return
	}
	port, err := testContainer.MappedPort(ctx, "27017")
	if err != nil {
		skipMongoTests = true
		return
	}

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		skipMongoTests = true
		return
	}
	if err := client.Ping(ctx, nil); err != nil {
		skipMongoTests = true
		return
	}
	testClient = client
}

func newStore(t *testing.T) *mongostore.Store {
	t.Helper()
	setupMongo(t)
	if skipMongoTests {
		t.Skip("Docker not available, skipping MongoDB-backed checkpoint store test")
	}
	ctx := context.Background()
	store, err := mongostore.New(ctx, mongostore.Options{
		Client:     testClient,
		Database:   "skillrt_test",
		Collection: t.Name(),
	})
	require.NoError(t, err)
	_, _ = testClient.Database("skillrt_test").Collection(t.Name()).DeleteMany(ctx, map[string]any{})
	return store
}

func TestMongoStorePersistsAcrossRecreation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	now := time.Now()
	cp := checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(now),
		ThreadID:     "thread-mongo-1",
		Timestamp:    now,
		Content:      map[string]any{"step": "fetch", "__next_node": "analyze"},
	}
	require.NoError(t, store.Put(ctx, cp))

	// A second Store value against the same collection sees what the first
	// wrote: the store holds no in-process state of its own.
	store2, err := mongostore.New(ctx, mongostore.Options{
		Client:   testClient,
		Database: "skillrt_test",
		Collection: t.Name(),
	})
	require.NoError(t, err)

	got, ok, err := store2.GetTuple(ctx, "thread-mongo-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cp.CheckpointID, got.CheckpointID)
	assert.Equal(t, "fetch", got.Content["step"])
}

func TestMongoStoreListReturnsChainInOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, step := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, store.Put(ctx, checkpoint.Checkpoint{
			CheckpointID: checkpoint.NewCheckpointID(ts),
			ThreadID:     "thread-mongo-2",
			Timestamp:    ts,
			Content:      map[string]any{"step": step},
		}))
	}

	chain, err := store.List(ctx, "thread-mongo-2")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "a", chain[0].Content["step"])
	assert.Equal(t, "c", chain[2].Content["step"])
}

func TestMongoStorePutIsIdempotentOnRetry(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	now := time.Now()
	cp := checkpoint.Checkpoint{
		CheckpointID: checkpoint.NewCheckpointID(now),
		ThreadID:     "thread-mongo-3",
		Timestamp:    now,
		Content:      map[string]any{"step": "once"},
	}
	require.NoError(t, store.Put(ctx, cp))
	require.NoError(t, store.Put(ctx, cp), "a retried write of the same checkpoint ID is not an error")

	chain, err := store.List(ctx, "thread-mongo-3")
	require.NoError(t, err)
	assert.Len(t, chain, 1)
}
