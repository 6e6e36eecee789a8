package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bidflow/bidflow/pkg/actions/addtag"
	"github.com/bidflow/bidflow/pkg/actions/movestage"
	"github.com/bidflow/bidflow/pkg/crm"
	"github.com/bidflow/bidflow/pkg/eventbus"
	"github.com/bidflow/bidflow/pkg/events"
	"github.com/bidflow/bidflow/pkg/models"
	"github.com/bidflow/bidflow/pkg/persistence"
	"github.com/bidflow/bidflow/pkg/persistence/file"
	"github.com/bidflow/bidflow/pkg/registry"
	"github.com/bidflow/bidflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

type dispatchFixture struct {
	store      *file.Persistence
	platform   *crm.Memory
	registry   *registry.Registry
	dispatcher *Dispatcher
	publisher  *capturePublisher
}

func newDispatchFixture(t *testing.T, actionTimeout time.Duration) *dispatchFixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	platform := crm.NewMemory()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(movestage.NewFactory(platform))
	reg.RegisterAction(addtag.NewFactory(platform))

	matcher := NewMatcher(store.RuleRepository(), 0, slog.Default())
	executor := NewExecutor(reg, actionTimeout, slog.Default())
	publisher := &capturePublisher{}

	dispatcher := NewDispatcher(
		platform,
		matcher,
		executor,
		store.ExecutionRepository(),
		publisher,
		nil,
		4,
		slog.Default(),
	)

	return &dispatchFixture{
		store:      store,
		platform:   platform,
		registry:   reg,
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}

func (f *dispatchFixture) executions(t *testing.T) []*models.Execution {
	t.Helper()

	rows, err := f.store.ExecutionRepository().List(context.Background(), persistence.ExecutionFilter{})
	require.NoError(t, err)

	return rows
}

func TestDispatcher_Dispatch_FiresMatchingRule(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatchFixture(t, time.Second)

	_, err := fixture.store.RuleRepository().Create(ctx, testutil.NewRule("qualify high scores", models.TriggerScoreThreshold,
		testutil.WithCondition("score", models.OperatorGt, 80),
		testutil.WithAction(models.ActionMoveStage, map[string]any{"target_stage": "qualified"})))
	require.NoError(t, err)

	entity := models.EntityRef{Type: "opportunity", ID: "opp-1"}
	fixture.platform.PutSnapshot(entity, testutil.OpportunitySnapshot("intake", 85))

	err = fixture.dispatcher.Dispatch(ctx, events.NewEntityEvent(models.TriggerScoreThreshold, entity.Type, entity.ID))
	require.NoError(t, err)

	require.Len(t, fixture.platform.StageMoves, 1)
	assert.Equal(t, "qualified", fixture.platform.StageMoves[0].TargetStage)

	rows := fixture.executions(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExecutionSuccess, rows[0].Status)
	assert.Equal(t, 1, rows[0].ActionsCompleted)
	assert.Equal(t, entity, rows[0].Entity)
}

func TestDispatcher_Dispatch_NoMatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatchFixture(t, time.Second)

	_, err := fixture.store.RuleRepository().Create(ctx, testutil.NewRule("qualify high scores", models.TriggerScoreThreshold,
		testutil.WithCondition("score", models.OperatorGt, 80),
		testutil.WithAction(models.ActionMoveStage, map[string]any{"target_stage": "qualified"})))
	require.NoError(t, err)

	entity := models.EntityRef{Type: "opportunity", ID: "opp-1"}
	fixture.platform.PutSnapshot(entity, testutil.OpportunitySnapshot("intake", 60))

	err = fixture.dispatcher.Dispatch(ctx, events.NewEntityEvent(models.TriggerScoreThreshold, entity.Type, entity.ID))
	require.NoError(t, err)

	assert.Empty(t, fixture.platform.StageMoves)
	assert.Empty(t, fixture.executions(t))
}

func TestDispatcher_Dispatch_PartialOnActionTimeout(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatchFixture(t, 20*time.Millisecond)

	fixture.registry.RegisterAction(&stubFactory{id: "slow", handler: &stubHandler{delay: 500 * time.Millisecond}})

	_, err := fixture.store.RuleRepository().Create(ctx, testutil.NewRule("tag then stall", models.TriggerEntityCreated,
		testutil.WithAction(models.ActionAddTag, map[string]any{"tag": "new-arrival"}),
		testutil.WithAction("slow", map[string]any{})))
	require.NoError(t, err)

	entity := models.EntityRef{Type: "opportunity", ID: "opp-2"}
	fixture.platform.PutSnapshot(entity, testutil.OpportunitySnapshot("intake", 50))

	err = fixture.dispatcher.Dispatch(ctx, events.NewEntityEvent(models.TriggerEntityCreated, entity.Type, entity.ID))
	require.NoError(t, err)

	rows := fixture.executions(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExecutionPartial, rows[0].Status)
	assert.Equal(t, 1, rows[0].ActionsCompleted)
	assert.Contains(t, rows[0].Error, "timed out")

	require.Len(t, fixture.platform.Tags, 1)
	assert.Equal(t, "new-arrival", fixture.platform.Tags[0].Tag)
}

func TestDispatcher_Dispatch_DisabledRuleDoesNotFire(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatchFixture(t, time.Second)

	_, err := fixture.store.RuleRepository().Create(ctx, testutil.NewRule("disabled", models.TriggerEntityCreated,
		testutil.WithEnabled(false),
		testutil.WithAction(models.ActionAddTag, map[string]any{"tag": "never"})))
	require.NoError(t, err)

	entity := models.EntityRef{Type: "opportunity", ID: "opp-3"}
	fixture.platform.PutSnapshot(entity, testutil.OpportunitySnapshot("intake", 50))

	err = fixture.dispatcher.Dispatch(ctx, events.NewEntityEvent(models.TriggerEntityCreated, entity.Type, entity.ID))
	require.NoError(t, err)

	assert.Empty(t, fixture.platform.Tags)
	assert.Empty(t, fixture.executions(t))
}

func TestDispatcher_Dispatch_MissingSnapshotDropsEvent(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatchFixture(t, time.Second)

	_, err := fixture.store.RuleRepository().Create(ctx, testutil.NewRule("any", models.TriggerEntityCreated,
		testutil.WithAction(models.ActionAddTag, map[string]any{"tag": "never"})))
	require.NoError(t, err)

	err = fixture.dispatcher.Dispatch(ctx, events.NewEntityEvent(models.TriggerEntityCreated, "opportunity", "missing"))
	require.NoError(t, err, "an unresolvable entity drops the event rather than failing the producer")

	assert.Empty(t, fixture.executions(t))
}

func TestDispatcher_Dispatch_PublishesExecutionRecorded(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatchFixture(t, time.Second)

	_, err := fixture.store.RuleRepository().Create(ctx, testutil.NewRule("tag new", models.TriggerEntityCreated,
		testutil.WithAction(models.ActionAddTag, map[string]any{"tag": "new-arrival"})))
	require.NoError(t, err)

	entity := models.EntityRef{Type: "opportunity", ID: "opp-4"}
	fixture.platform.PutSnapshot(entity, testutil.OpportunitySnapshot("intake", 50))

	err = fixture.dispatcher.Dispatch(ctx, events.NewEntityEvent(models.TriggerEntityCreated, entity.Type, entity.ID))
	require.NoError(t, err)

	require.Len(t, fixture.publisher.events, 1)

	recorded, ok := fixture.publisher.events[0].(events.ExecutionRecorded)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionSuccess, recorded.Status)
	assert.Equal(t, entity.ID, recorded.EntityID)
}

type serialHandler struct {
	active  atomic.Int32
	overlap atomic.Bool
}

func (h *serialHandler) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (models.ActionResult, error) {
	if h.active.Add(1) > 1 {
		h.overlap.Store(true)
	}

	time.Sleep(20 * time.Millisecond)
	h.active.Add(-1)

	return models.ActionResult{Success: true}, nil
}

func TestDispatcher_Dispatch_SerializesPerEntity(t *testing.T) {
	ctx := context.Background()
	fixture := newDispatchFixture(t, time.Second)

	handler := &serialHandler{}
	fixture.registry.RegisterAction(&stubFactory{id: "serial", handler: handler})

	_, err := fixture.store.RuleRepository().Create(ctx, testutil.NewRule("serial", models.TriggerStageChanged,
		testutil.WithAction("serial", map[string]any{})))
	require.NoError(t, err)

	entity := models.EntityRef{Type: "opportunity", ID: "opp-5"}
	fixture.platform.PutSnapshot(entity, testutil.OpportunitySnapshot("proposal", 50))

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := fixture.dispatcher.Dispatch(ctx, events.NewEntityEvent(models.TriggerStageChanged, entity.Type, entity.ID))
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.False(t, handler.overlap.Load(), "dispatches for one entity must not run concurrently")
	assert.Len(t, fixture.executions(t), 4)
}
