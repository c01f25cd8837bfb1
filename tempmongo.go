package tempmongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"

	"github.com/tempmongo/tempmongo/internal/engine"
	"github.com/tempmongo/tempmongo/internal/freeport"
)

const (
	// readyTimeout bounds how long Create waits for mongod to accept
	// connections after the container starts.
	readyTimeout = 30 * time.Second

	// conflictTimeout bounds how long a fixed-name creator waits for a
	// concurrent winner's container to become visible after a 409.
	conflictTimeout = 5 * time.Second
)

type state int

const (
	stateNew state = iota
	stateActive
	stateTornDown
)

// TempMongo manages one disposable MongoDB container. It is not safe for
// concurrent use; run one manager per goroutine and give each test its own.
type TempMongo struct {
	engine *engine.Client
	cfg    *config

	state       state
	containerID string
	port        int
	uri         string
	client      *mongo.Client
}

// New connects to the Docker daemon and returns a manager with no container
// side effects. An unreachable daemon fails here, not at Create.
func New(opts ...Option) (*TempMongo, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	engineClient, err := engine.New(cfg.logger)
	if err != nil {
		return nil, err
	}
	return &TempMongo{
		engine: engineClient,
		cfg:    cfg,
	}, nil
}

// Create provisions the container and connects the MongoDB client. In
// dynamic mode (the default) it pulls the image if absent, allocates a free
// loopback port, creates and starts a container with an engine-assigned
// name, and waits until mongod accepts connections. In fixed-name mode it
// converges on the single well-known container instead, tolerating the
// naming conflict that occurs when several processes create it at once.
//
// On success the manager is active and Client, URI, Port, and ContainerID
// are usable. Any failure aborts Create; if the container was already
// created its identity stays bound so a teardown call can still reach it.
func (t *TempMongo) Create(ctx context.Context) error {
	switch t.state {
	case stateActive:
		return ErrAlreadyCreated
	case stateTornDown:
		return ErrTornDown
	}
	if t.containerID != "" {
		// A previous Create failed after binding the container. The
		// manager is unusable; the container remains reachable for
		// teardown.
		return ErrAlreadyCreated
	}

	if err := t.engine.EnsureImage(ctx, t.cfg.image, t.cfg.pullProgress); err != nil {
		return err
	}
	if t.cfg.fixedName != "" {
		return t.createFixed(ctx)
	}
	return t.createDynamic(ctx)
}

func (t *TempMongo) createDynamic(ctx context.Context) error {
	port, err := freeport.Get()
	if err != nil {
		return fmt.Errorf("allocate host port: %w", err)
	}

	id, err := t.engine.CreateContainer(ctx, t.containerSpec("", port, "dynamic"))
	if err != nil {
		return err
	}
	// Bind the identity before anything else can fail, so the container is
	// reachable by teardown even if start or connect fails below.
	t.containerID = id
	t.port = port
	t.uri = t.buildURI(port)

	if err := t.engine.StartContainer(ctx, id); err != nil {
		return err
	}
	return t.connect(ctx)
}

func (t *TempMongo) createFixed(ctx context.Context) error {
	name := t.cfg.fixedName
	port := t.cfg.fixedPort

	summary, err := t.engine.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if summary == nil {
		id, err := t.engine.CreateContainer(ctx, t.containerSpec(name, port, "fixed"))
		switch {
		case err == nil:
			summary = &engine.Summary{ID: id, Name: name}
		case engine.IsConflict(err):
			// Another process created the name between the list and the
			// create. Benign: wait for the winner's container to show up
			// and use it.
			summary, err = t.awaitNamedContainer(ctx, name)
			if err != nil {
				return err
			}
		default:
			return err
		}
	}
	t.containerID = summary.ID
	t.port = port
	t.uri = t.buildURI(port)

	if !summary.Running {
		if err := t.engine.StartContainer(ctx, summary.ID); err != nil && !engine.IsConflict(err) {
			return err
		}
	}
	return t.connect(ctx)
}

// awaitNamedContainer re-lists until the named container is visible, with a
// short constant backoff. The winner of the create race may still be
// finishing its call when the 409 arrives.
func (t *TempMongo) awaitNamedContainer(ctx context.Context, name string) (*engine.Summary, error) {
	retryCtx, cancel := context.WithTimeout(ctx, conflictTimeout)
	defer cancel()

	var found *engine.Summary
	backoff := retry.NewConstant(50 * time.Millisecond)
	err := retry.Do(retryCtx, backoff, func(ctx context.Context) error {
		summary, err := t.engine.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if summary == nil {
			return retry.RetryableError(fmt.Errorf("container %s not yet visible", name))
		}
		found = summary
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("wait for conflicting container %s: %w", name, err)
	}
	return found, nil
}

// connect establishes the MongoDB client, retrying the ping with exponential
// backoff until mongod inside the container finishes booting or the deadline
// passes.
func (t *TempMongo) connect(ctx context.Context) error {
	retryCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	backoff := retry.WithCappedDuration(2*time.Second, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(retryCtx, backoff, func(ctx context.Context) error {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(t.uri))
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return retry.RetryableError(multierr.Append(err, client.Disconnect(ctx)))
		}
		t.client = client
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect to mongodb at %s: %w", t.uri, err)
	}
	t.state = stateActive
	return nil
}

func (t *TempMongo) containerSpec(name string, hostPort int, mode string) engine.ContainerSpec {
	var env []string
	if t.cfg.rootUser != "" {
		env = append(env,
			"MONGO_INITDB_ROOT_USERNAME="+t.cfg.rootUser,
			"MONGO_INITDB_ROOT_PASSWORD="+t.cfg.rootPassword,
		)
	}
	return engine.ContainerSpec{
		Name:          name,
		Image:         t.cfg.image,
		Env:           env,
		ContainerPort: mongoPort,
		HostPort:      hostPort,
		Labels:        map[string]string{engine.ManagedLabelKey: mode},
	}
}

// buildURI derives the connection endpoint from the bound port. The direct
// connection hint stops the driver from attempting replica-set discovery
// against a standalone server.
func (t *TempMongo) buildURI(port int) string {
	if t.cfg.rootUser != "" {
		return fmt.Sprintf(
			"mongodb://%s@%s:%d/%s?authSource=admin&directConnection=true",
			url.UserPassword(t.cfg.rootUser, t.cfg.rootPassword).String(),
			engine.HostIP, port, t.cfg.database,
		)
	}
	return fmt.Sprintf("mongodb://%s:%d/%s?directConnection=true", engine.HostIP, port, t.cfg.database)
}

// Client returns the connected MongoDB client, or nil before a successful
// Create.
func (t *TempMongo) Client() *mongo.Client {
	return t.client
}

// URI returns the connection endpoint, empty before the container is bound.
func (t *TempMongo) URI() string {
	return t.uri
}

// Port returns the loopback host port the server is published on.
func (t *TempMongo) Port() int {
	return t.port
}

// ContainerID returns the identity of the managed container: the
// engine-assigned ID in dynamic mode, or the well-known container's ID in
// fixed-name mode.
func (t *TempMongo) ContainerID() string {
	return t.containerID
}

// Close disconnects the MongoDB client and releases the daemon transport. It
// does not touch the container; pair it with KillAndClean or KillNotClean.
func (t *TempMongo) Close(ctx context.Context) error {
	var err error
	if t.client != nil {
		err = multierr.Append(err, t.client.Disconnect(ctx))
		t.client = nil
	}
	return multierr.Append(err, t.engine.Close())
}
