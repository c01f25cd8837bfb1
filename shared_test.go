package tempmongo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"

	"github.com/tempmongo/tempmongo"
	"github.com/tempmongo/tempmongo/internal/engine"
	"github.com/tempmongo/tempmongo/internal/freeport"
)

// Fixed-name mode tests. Each test uses its own container name and host port
// so parallel tests cannot collide with each other or a locally running
// mongod on 27017.

func freeTestPort(t *testing.T) int {
	t.Helper()
	port, err := freeport.Get()
	require.NoError(t, err)
	return port
}

func uniqueFixedName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("temp-mongo-%s-%d", t.Name(), time.Now().UnixNano())
}

func removeNamed(t *testing.T, name string) {
	t.Helper()
	eng, err := engine.New(nil)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, eng.Close())
	}()
	ctx := context.WithoutCancel(t.Context())
	summary, err := eng.FindByName(ctx, name)
	require.NoError(t, err)
	if summary != nil {
		assert.NoError(t, eng.RemoveContainer(ctx, summary.ID))
	}
}

func TestFixedNameCreate(t *testing.T) {
	t.Parallel()

	name := uniqueFixedName(t)
	t.Cleanup(func() { removeNamed(t, name) })

	port := freeTestPort(t)

	m := newFixture(t, tempmongo.WithFixedName(name), tempmongo.WithFixedPort(port))
	ctx := t.Context()
	require.NoError(t, m.Create(ctx))

	require.NotEmpty(t, m.ContainerID())
	require.Equal(t, port, m.Port())
	require.Contains(t, m.URI(), "directConnection=true")

	_, err := m.Client().Database("test").Collection("foo").
		InsertOne(ctx, bson.D{{Key: "hello", Value: "world"}})
	require.NoError(t, err)
}

func TestFixedNameAdoptsExisting(t *testing.T) {
	t.Parallel()

	name := uniqueFixedName(t)
	t.Cleanup(func() { removeNamed(t, name) })

	port := freeTestPort(t)

	ctx := t.Context()
	first := newFixture(t, tempmongo.WithFixedName(name), tempmongo.WithFixedPort(port))
	require.NoError(t, first.Create(ctx))

	// A second manager with the same name must adopt the container rather
	// than create another one.
	second := newFixture(t, tempmongo.WithFixedName(name), tempmongo.WithFixedPort(port))
	require.NoError(t, second.Create(ctx))
	require.Equal(t, first.ContainerID(), second.ContainerID())
}

func TestFixedNameConflictTolerance(t *testing.T) {
	t.Parallel()

	name := uniqueFixedName(t)
	t.Cleanup(func() { removeNamed(t, name) })

	port := freeTestPort(t)

	const callers = 4
	ctx := t.Context()
	ids := make([]string, callers)

	// All callers race create() within milliseconds of each other. Every
	// one must end up connected, and exactly one container must exist.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			m, err := tempmongo.New(
				tempmongo.WithFixedName(name),
				tempmongo.WithFixedPort(port),
			)
			if err != nil {
				return err
			}
			defer m.Close(context.WithoutCancel(gctx))

			if err := m.Create(gctx); err != nil {
				return err
			}
			if _, err := m.Client().Database("test").Collection("foo").
				InsertOne(gctx, bson.D{{Key: "caller", Value: i}}); err != nil {
				return err
			}
			ids[i] = m.ContainerID()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		require.NotEmpty(t, id)
		require.Equal(t, ids[0], id, "all callers must converge on one container")
	}

	eng, err := engine.New(nil)
	require.NoError(t, err)
	defer eng.Close()
	summary, err := eng.FindByName(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, ids[0], summary.ID)
}
