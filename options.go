package tempmongo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	// DefaultImage is the MongoDB image used when none is configured.
	DefaultImage = "mongo:latest"

	// DefaultDatabase is the logical database name used in the connection
	// URI when none is configured.
	DefaultDatabase = "test"

	// DefaultFixedName is the well-known container name used by
	// WithFixedName("").
	DefaultFixedName = "temp-mongo"

	// DefaultFixedPort is the host port used in fixed-name mode when none
	// is configured.
	DefaultFixedPort = 27017

	// mongoPort is the port mongod listens on inside the container.
	mongoPort = 27017
)

// Option configures a TempMongo manager.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(cfg *config) error {
	return f(cfg)
}

type config struct {
	image        string
	database     string
	fixedName    string
	fixedPort    int
	rootUser     string
	rootPassword string
	pullProgress io.Writer
	logger       *slog.Logger
}

func defaultConfig() *config {
	return &config{
		image:    DefaultImage,
		database: DefaultDatabase,
	}
}

// WithImage sets the MongoDB image reference, for example "mongo:7".
func WithImage(image string) Option {
	return optionFunc(func(cfg *config) error {
		image = strings.TrimSpace(image)
		if image == "" {
			return errors.New("image must not be empty")
		}
		cfg.image = image
		return nil
	})
}

// WithDatabase sets the logical database name placed in the connection URI.
func WithDatabase(database string) Option {
	return optionFunc(func(cfg *config) error {
		database = strings.TrimSpace(database)
		if database == "" {
			return errors.New("database must not be empty")
		}
		cfg.database = database
		return nil
	})
}

// WithFixedName switches the manager into fixed-name mode: a single
// well-known container shared by every process on the machine, published on
// a fixed host port. An empty name selects DefaultFixedName.
//
// Without this option each manager creates its own container with an
// engine-assigned name on a freshly allocated port.
func WithFixedName(name string) Option {
	return optionFunc(func(cfg *config) error {
		name = strings.TrimSpace(name)
		if name == "" {
			name = DefaultFixedName
		}
		cfg.fixedName = name
		if cfg.fixedPort == 0 {
			cfg.fixedPort = DefaultFixedPort
		}
		return nil
	})
}

// WithFixedPort sets the host port used in fixed-name mode. It has no effect
// in dynamic mode, where the port is always allocated.
func WithFixedPort(port int) Option {
	return optionFunc(func(cfg *config) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("host port must be in range 1-65535: %d", port)
		}
		cfg.fixedPort = port
		return nil
	})
}

// WithRootCredentials sets the MONGO_INITDB_ROOT_USERNAME and
// MONGO_INITDB_ROOT_PASSWORD environment of the container and embeds the
// credentials in the connection URI.
func WithRootCredentials(user, password string) Option {
	return optionFunc(func(cfg *config) error {
		user = strings.TrimSpace(user)
		if user == "" {
			return errors.New("root user must not be empty")
		}
		if password == "" {
			return errors.New("root password must not be empty")
		}
		cfg.rootUser = user
		cfg.rootPassword = password
		return nil
	})
}

// WithPullProgress sets where image pull output is streamed. Discarded when
// unset.
func WithPullProgress(w io.Writer) Option {
	return optionFunc(func(cfg *config) error {
		cfg.pullProgress = w
		return nil
	})
}

// WithLogger sets the logger. Logs are discarded when unset.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(cfg *config) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		cfg.logger = logger
		return nil
	})
}
