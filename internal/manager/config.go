package manager

import (
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"childctl/internal/inject"
	"childctl/internal/process"
	"childctl/internal/registry"
	"childctl/pkg/types"
)

// writeTimeout bounds a single Send or Reply.
const writeTimeout = 10 * time.Second

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	// Loader is the custom module loader published by Register.
	Loader *url.URL
	// Context carries the optional telemetry configuration.
	Context *types.ManagerContext

	// Logger receives structured lifecycle and fault entries. Nil means no logging.
	Logger *zerolog.Logger
	// Publisher receives lifecycle events. Nil drops them.
	Publisher EventPublisher
	// OnFatal is the top-level termination point. Defaults to process.Terminate.
	// It runs on the goroutine that detected the fault and must not call Close.
	OnFatal func(error)

	// SocketDir holds the Unix socket. Empty means os.TempDir().
	SocketDir string

	// Registry receives loader registrations. Nil means registry.Default().
	Registry *registry.Store
	// RegistrySnapshot, when set, is rewritten on every Register.
	RegistrySnapshot string

	// EnvVar, BootstrapHook and TelemetryHook override the injector defaults.
	EnvVar        string
	BootstrapHook string
	TelemetryHook string
	// Env is the environment Inject mutates. Nil means the process environment.
	Env inject.Environment
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.Publisher == nil {
		o.Publisher = noopPublisher{}
	}
	if o.OnFatal == nil {
		o.OnFatal = process.Terminate
	}
	if o.Registry == nil {
		o.Registry = registry.Default()
	}
	return o
}
