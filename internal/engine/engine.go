// Package engine wraps the Docker remote API with the handful of operations
// the fixture needs: pull an image, create, start, stop, remove, and list
// containers. The transport to the daemon (unix socket, or named pipe on
// Windows) is resolved once at construction from the environment; if the
// daemon is unreachable the constructor fails and nothing else works.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/netip"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// ManagedLabelKey marks containers created by this module. The value holds
// the fixture mode ("dynamic" or "fixed").
const ManagedLabelKey = "org.tempmongo.managed"

// HostIP is the loopback address all container ports are bound to.
const HostIP = "127.0.0.1"

// Client is a thin adapter over the Docker engine client. A single Client is
// shared by every operation of the manager that owns it; the underlying HTTP
// transport is reused across calls.
type Client struct {
	docker *client.Client
	logger *slog.Logger
}

// New connects to the Docker daemon using environment defaults and returns an
// adapter around the connection. Failure to reach the daemon is returned
// immediately, not deferred to the first operation.
func New(logger *slog.Logger) (*Client, error) {
	docker, err := client.New(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("connect to docker daemon: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		docker: docker,
		logger: logger.With(slog.String("logger", "engine")),
	}, nil
}

// Close releases the transport to the daemon.
func (c *Client) Close() error {
	return c.docker.Close()
}

// ContainerSpec describes the one container shape this module creates: a
// single TCP port published on loopback, an image, environment variables,
// and an optional fixed name.
type ContainerSpec struct {
	// Name is the container name. Empty means the engine assigns one.
	Name string

	// Image is the image reference, e.g. "mongo:latest".
	Image string

	// Env holds KEY=VALUE environment variables.
	Env []string

	// ContainerPort is the TCP port the server listens on inside the
	// container.
	ContainerPort int

	// HostPort is the loopback port the container port is published on.
	HostPort int

	// Labels are merged on top of the managed label.
	Labels map[string]string
}

func (s ContainerSpec) validate() error {
	if s.Image == "" {
		return errors.New("image is required")
	}
	if s.ContainerPort <= 0 || s.ContainerPort > 65535 {
		return fmt.Errorf("container port must be in range 1-65535: %d", s.ContainerPort)
	}
	if s.HostPort <= 0 || s.HostPort > 65535 {
		return fmt.Errorf("host port must be in range 1-65535: %d", s.HostPort)
	}
	return nil
}

// EnsureImage makes the image available locally, pulling it if absent. The
// pull response is streamed; it is drained to completion before returning so
// a partially consumed pull is never reported as success. Pull progress is
// written to progress when non-nil.
func (c *Client) EnsureImage(ctx context.Context, image string, progress io.Writer) (retErr error) {
	if _, err := c.docker.ImageInspect(ctx, image); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", image, err)
	}

	reader, err := c.docker.ImagePull(ctx, image, client.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", image, err)
	}
	defer func() {
		retErr = errors.Join(retErr, reader.Close())
	}()

	if progress == nil {
		progress = io.Discard
	}
	if _, err := io.Copy(progress, reader); err != nil {
		return fmt.Errorf("drain pull stream for %s: %w", image, err)
	}
	c.logger.Info("image pulled", slog.String("image", image))
	return nil
}

// CreateContainer creates a container from spec and returns the
// engine-assigned ID. The container is not started. A name collision with a
// concurrently created container surfaces as an error satisfying
// [IsConflict].
func (c *Client) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}
	port, ok := network.PortFrom(uint16(spec.ContainerPort), network.TCP)
	if !ok {
		return "", fmt.Errorf("invalid container port: %d", spec.ContainerPort)
	}
	labels := map[string]string{ManagedLabelKey: ""}
	maps.Copy(labels, spec.Labels)

	resp, err := c.docker.ContainerCreate(ctx, client.ContainerCreateOptions{
		Name: spec.Name,
		Config: &container.Config{
			Image:        spec.Image,
			Env:          spec.Env,
			ExposedPorts: network.PortSet{port: struct{}{}},
			Labels:       labels,
		},
		HostConfig: &container.HostConfig{
			PortBindings: network.PortMap{port: []network.PortBinding{{
				HostIP:   netip.MustParseAddr(HostIP),
				HostPort: strconv.Itoa(spec.HostPort),
			}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	c.logger.Info(
		"container created",
		slog.String("container_id", resp.ID),
		slog.String("image", spec.Image),
		slog.Int("host_port", spec.HostPort),
	)
	return resp.ID, nil
}

// StartContainer starts a created container by ID or name.
func (c *Client) StartContainer(ctx context.Context, id string) error {
	if _, err := c.docker.ContainerStart(ctx, id, client.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", id, err)
	}
	c.logger.Info("container started", slog.String("container_id", id))
	return nil
}

// StopContainer stops a running container. Stopping an already removed
// container surfaces the engine's not-found error.
func (c *Client) StopContainer(ctx context.Context, id string) error {
	if _, err := c.docker.ContainerStop(ctx, id, client.ContainerStopOptions{}); err != nil {
		return fmt.Errorf("stop container %s: %w", id, err)
	}
	c.logger.Info("container stopped", slog.String("container_id", id))
	return nil
}

// RemoveContainer removes a container and its anonymous volumes. A running
// container is force removed.
func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	if _, err := c.docker.ContainerRemove(ctx, id, client.ContainerRemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	}); err != nil {
		return fmt.Errorf("remove container %s: %w", id, err)
	}
	c.logger.Info("container removed", slog.String("container_id", id))
	return nil
}

// Summary is a reduced view of one listed container.
type Summary struct {
	ID      string
	Name    string
	Image   string
	Running bool
	Status  string
}

// ListManaged returns all containers, running or not, that carry the managed
// label.
func (c *Client) ListManaged(ctx context.Context) ([]Summary, error) {
	result, err := c.docker.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: client.Filters{}.Add("label", ManagedLabelKey),
	})
	if err != nil {
		return nil, fmt.Errorf("list managed containers: %w", err)
	}
	summaries := make([]Summary, 0, len(result.Items))
	for _, item := range result.Items {
		summaries = append(summaries, summarize(item))
	}
	return summaries, nil
}

// FindByName looks up a container, running or not, whose name matches
// exactly. It returns nil when no such container exists.
func (c *Client) FindByName(ctx context.Context, name string) (*Summary, error) {
	result, err := c.docker.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: client.Filters{}.Add("name", name),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers by name %s: %w", name, err)
	}
	// The name filter matches substrings; require an exact match.
	for _, item := range result.Items {
		for _, candidate := range item.Names {
			if TrimNamePrefix(candidate) == name {
				s := summarize(item)
				return &s, nil
			}
		}
	}
	return nil, nil
}

func summarize(item container.Summary) Summary {
	name := ""
	if len(item.Names) > 0 {
		name = TrimNamePrefix(item.Names[0])
	}
	return Summary{
		ID:      item.ID,
		Name:    name,
		Image:   item.Image,
		Running: item.State == "running",
		Status:  item.Status,
	}
}

// TrimNamePrefix strips the leading "/" the engine prepends to container
// names in list responses.
func TrimNamePrefix(name string) string {
	return strings.TrimPrefix(name, "/")
}

// IsConflict reports whether err is the engine's 409 response, i.e. another
// caller created a container with the same name first.
func IsConflict(err error) bool {
	return errdefs.IsConflict(err)
}

// IsNotFound reports whether err is the engine's 404 response for a missing
// container or image.
func IsNotFound(err error) bool {
	return errdefs.IsNotFound(err)
}
