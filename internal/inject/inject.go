package inject

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"childctl/pkg/types"
)

const (
	// DefaultVar is the variable the host runtime reads its flags from.
	DefaultVar = "NODE_OPTIONS"
	// DefaultBootstrapHook wires an attaching child into the control channel.
	DefaultBootstrapHook = "childctl/register"
	// DefaultTelemetryHook starts the telemetry agent in the child.
	DefaultTelemetryHook = "childctl/telemetry"

	hookFlag = "--require"
)

// Environment is the process environment the injector mutates.
type Environment interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
	Unsetenv(key string) error
}

// OSEnvironment is the real process environment.
type OSEnvironment struct{}

func (OSEnvironment) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }
func (OSEnvironment) Setenv(key, value string) error      { return os.Setenv(key, value) }
func (OSEnvironment) Unsetenv(key string) error           { return os.Unsetenv(key) }

// Injector describes which hooks to inject and where.
type Injector struct {
	Var           string
	BootstrapHook string
	TelemetryHook string
	Telemetry     *types.TelemetryConfig
	Env           Environment
}

func (in *Injector) variable() string {
	if in.Var == "" {
		return DefaultVar
	}
	return in.Var
}

func (in *Injector) env() Environment {
	if in.Env == nil {
		return OSEnvironment{}
	}
	return in.Env
}

// Hooks returns the hooks in load order: the bootstrap hook always, the
// telemetry hook only when telemetry is configured and not explicitly
// disabled.
func (in *Injector) Hooks() []string {
	bootstrap := in.BootstrapHook
	if bootstrap == "" {
		bootstrap = DefaultBootstrapHook
	}
	hooks := []string{bootstrap}
	if in.Telemetry.IsEnabled() {
		telemetry := in.TelemetryHook
		if telemetry == "" {
			telemetry = DefaultTelemetryHook
		}
		hooks = append(hooks, telemetry)
	}
	return hooks
}

// Value renders the variable's new value given its prior value.
func (in *Injector) Value(prior string) string {
	parts := make([]string, 0, 3)
	if p := strings.TrimSpace(prior); p != "" {
		parts = append(parts, p)
	}
	for _, h := range in.Hooks() {
		parts = append(parts, hookFlag+" "+quote(h))
	}
	return strings.Join(parts, " ")
}

// quote wraps hook references containing whitespace or quotes in double
// quotes, escaping backslashes and quotes inside.
func quote(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// Inject sets the variable and returns the handle that restores it.
func (in *Injector) Inject() (*Injection, error) {
	env := in.env()
	name := in.variable()
	prior, wasSet := env.LookupEnv(name)
	inj := &Injection{env: env, name: name, prior: prior, wasSet: wasSet, value: in.Value(prior)}
	if err := env.Setenv(name, inj.value); err != nil {
		if rerr := inj.Release(); rerr != nil {
			return nil, fmt.Errorf("set %s: %w (restore: %v)", name, err, rerr)
		}
		return nil, fmt.Errorf("set %s: %w", name, err)
	}
	return inj, nil
}

// Injection is one applied injection.
type Injection struct {
	env    Environment
	name   string
	prior  string
	wasSet bool
	value  string

	once sync.Once
	err  error
}

// Var returns the variable name.
func (i *Injection) Var() string { return i.name }

// Value returns the injected value.
func (i *Injection) Value() string { return i.value }

// Prior returns the captured value and whether the variable was set.
func (i *Injection) Prior() (string, bool) { return i.prior, i.wasSet }

// Release restores the captured value. Only the first call acts; later calls
// return the first call's result.
func (i *Injection) Release() error {
	i.once.Do(func() {
		if i.wasSet {
			i.err = i.env.Setenv(i.name, i.prior)
		} else {
			i.err = i.env.Unsetenv(i.name)
		}
		if i.err != nil {
			i.err = fmt.Errorf("restore %s: %w", i.name, i.err)
		}
	})
	return i.err
}
