package host

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Provider supplies the host identifiers. Implementations return raw values;
// trimming is left to the caller.
type Provider interface {
	Release() (string, error)
	Platform() (string, error)
}

var (
	DefaultReleaseCommand  = []string{"uname", "-r"}
	DefaultPlatformCommand = []string{"uname", "-a"}
)

// CommandProvider runs an external command for each lookup. Calls are
// synchronous and never retried.
type CommandProvider struct {
	releaseCmd  []string
	platformCmd []string
	env         []string
}

type CommandOption func(*CommandProvider)

// WithReleaseCommand replaces the command used to read the kernel release
func WithReleaseCommand(argv ...string) CommandOption {
	return func(p *CommandProvider) {
		if len(argv) > 0 {
			p.releaseCmd = argv
		}
	}
}

// WithPlatformCommand replaces the command used to read the platform string
func WithPlatformCommand(argv ...string) CommandOption {
	return func(p *CommandProvider) {
		if len(argv) > 0 {
			p.platformCmd = argv
		}
	}
}

// WithEnv sets the environment passed to the commands
func WithEnv(env []string) CommandOption {
	return func(p *CommandProvider) {
		p.env = env
	}
}

func NewCommandProvider(opts ...CommandOption) *CommandProvider {
	p := &CommandProvider{
		releaseCmd:  DefaultReleaseCommand,
		platformCmd: DefaultPlatformCommand,
		env:         os.Environ(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CommandProvider) Release() (string, error) {
	return p.run(p.releaseCmd)
}

func (p *CommandProvider) Platform() (string, error) {
	return p.run(p.platformCmd)
}

func (p *CommandProvider) run(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("host command is empty")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = p.env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("host command %q failed: %w: %s",
			strings.Join(argv, " "), err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// Static is a Provider with fixed values
type Static struct {
	ReleaseValue  string
	PlatformValue string
}

func (s Static) Release() (string, error)  { return s.ReleaseValue, nil }
func (s Static) Platform() (string, error) { return s.PlatformValue, nil }

// Override wraps a Provider, replacing whichever values are non-empty
type Override struct {
	Provider      Provider
	ReleaseValue  string
	PlatformValue string
}

func (o Override) Release() (string, error) {
	if o.ReleaseValue != "" {
		return o.ReleaseValue, nil
	}
	return o.Provider.Release()
}

func (o Override) Platform() (string, error) {
	if o.PlatformValue != "" {
		return o.PlatformValue, nil
	}
	return o.Provider.Platform()
}

// Cached memoizes the first successful result of each lookup so several
// consumers share a single command invocation. Errors are not cached.
type Cached struct {
	provider Provider
	release  *string
	platform *string
}

func NewCached(p Provider) *Cached {
	return &Cached{provider: p}
}

func (c *Cached) Release() (string, error) {
	if c.release != nil {
		return *c.release, nil
	}
	v, err := c.provider.Release()
	if err != nil {
		return "", err
	}
	c.release = &v
	return v, nil
}

func (c *Cached) Platform() (string, error) {
	if c.platform != nil {
		return *c.platform, nil
	}
	v, err := c.provider.Platform()
	if err != nil {
		return "", err
	}
	c.platform = &v
	return v, nil
}
