package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vrischmann/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/l3check/pkg/check"
	"github.com/cuemby/l3check/pkg/dispatcher"
	"github.com/cuemby/l3check/pkg/hostnet"
	"github.com/cuemby/l3check/pkg/neutron"
	"github.com/cuemby/l3check/pkg/runtime"
)

// Config is the complete l3check configuration
type Config struct {
	Neutron    NeutronConfig    `yaml:"neutron"`
	Containerd ContainerdConfig `yaml:"containerd"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Inspect    InspectConfig    `yaml:"inspect"`
	Serve      ServeConfig      `yaml:"serve"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
}

// NeutronConfig configures the control plane client
type NeutronConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Token       string        `yaml:"token"`
	InsecureTLS bool          `yaml:"insecure_tls"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// ContainerdConfig configures discovery of agent containers
type ContainerdConfig struct {
	Socket        string `yaml:"socket"`
	Namespace     string `yaml:"namespace"`
	Filter        string `yaml:"filter"`
	InspectorPath string `yaml:"inspector_path"`
}

// DispatchConfig configures the worker pool
type DispatchConfig struct {
	Workers        int           `yaml:"workers"`
	ContextTimeout time.Duration `yaml:"context_timeout"`
	Local          bool          `yaml:"local"`      // Inspect this host in-process instead of containers
	LocalName      string        `yaml:"local_name"` // Defaults to the hostname
}

// InspectConfig configures namespace inspection
type InspectConfig struct {
	NetnsDir string `yaml:"netns_dir"`
}

// ServeConfig configures serve mode
type ServeConfig struct {
	Listen   string        `yaml:"listen"`
	Interval time.Duration `yaml:"interval"`
}

// OutputConfig configures result sinks
type OutputConfig struct {
	Textfile string `yaml:"textfile"` // Node exporter textfile path, empty to disable
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// env holds the L3CHECK_* overrides. Unset variables stay nil.
type env struct {
	NeutronEndpoint    *string        `envconfig:"L3CHECK_NEUTRON_ENDPOINT"`
	NeutronToken       *string        `envconfig:"L3CHECK_NEUTRON_TOKEN"`
	NeutronInsecureTLS *bool          `envconfig:"L3CHECK_NEUTRON_INSECURE_TLS"`
	NeutronTimeout     *time.Duration `envconfig:"L3CHECK_NEUTRON_TIMEOUT"`
	NeutronRetries     *int           `envconfig:"L3CHECK_NEUTRON_RETRIES"`

	ContainerdSocket    *string `envconfig:"L3CHECK_CONTAINERD_SOCKET"`
	ContainerdNamespace *string `envconfig:"L3CHECK_CONTAINERD_NAMESPACE"`
	ContainerdFilter    *string `envconfig:"L3CHECK_CONTAINERD_FILTER"`

	DispatchWorkers        *int           `envconfig:"L3CHECK_DISPATCH_WORKERS"`
	DispatchContextTimeout *time.Duration `envconfig:"L3CHECK_DISPATCH_CONTEXT_TIMEOUT"`
	DispatchLocal          *bool          `envconfig:"L3CHECK_DISPATCH_LOCAL"`

	ServeListen   *string        `envconfig:"L3CHECK_SERVE_LISTEN"`
	ServeInterval *time.Duration `envconfig:"L3CHECK_SERVE_INTERVAL"`

	OutputTextfile *string `envconfig:"L3CHECK_OUTPUT_TEXTFILE"`
	LogLevel       *string `envconfig:"L3CHECK_LOG_LEVEL"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Neutron: NeutronConfig{
			Timeout:    neutron.DefaultTimeout,
			Retries:    neutron.DefaultRetries,
			RetryDelay: neutron.DefaultRetryDelay,
		},
		Containerd: ContainerdConfig{
			Socket:        runtime.DefaultSocketPath,
			Namespace:     runtime.DefaultNamespace,
			Filter:        dispatcher.DefaultFilter,
			InspectorPath: runtime.DefaultInspectorPath,
		},
		Dispatch: DispatchConfig{
			ContextTimeout: dispatcher.DefaultContextTimeout,
		},
		Inspect: InspectConfig{
			NetnsDir: hostnet.DefaultNetnsDir,
		},
		Serve: ServeConfig{
			Listen:   ":9292",
			Interval: check.DefaultInterval,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// not empty), a .env file in the working directory and L3CHECK_*
// environment variables, in that order
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

// applyEnv overrides fields with the L3CHECK_* variables that are set.
// envconfig parses the values; presence is decided by os.LookupEnv because
// envconfig allocates pointer fields even for unset variables.
func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.InitWithOptions(&e, envconfig.Options{AllOptional: true, LeaveNil: true}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	override(&c.Neutron.Endpoint, "L3CHECK_NEUTRON_ENDPOINT", e.NeutronEndpoint)
	override(&c.Neutron.Token, "L3CHECK_NEUTRON_TOKEN", e.NeutronToken)
	override(&c.Neutron.InsecureTLS, "L3CHECK_NEUTRON_INSECURE_TLS", e.NeutronInsecureTLS)
	override(&c.Neutron.Timeout, "L3CHECK_NEUTRON_TIMEOUT", e.NeutronTimeout)
	override(&c.Neutron.Retries, "L3CHECK_NEUTRON_RETRIES", e.NeutronRetries)

	override(&c.Containerd.Socket, "L3CHECK_CONTAINERD_SOCKET", e.ContainerdSocket)
	override(&c.Containerd.Namespace, "L3CHECK_CONTAINERD_NAMESPACE", e.ContainerdNamespace)
	override(&c.Containerd.Filter, "L3CHECK_CONTAINERD_FILTER", e.ContainerdFilter)

	override(&c.Dispatch.Workers, "L3CHECK_DISPATCH_WORKERS", e.DispatchWorkers)
	override(&c.Dispatch.ContextTimeout, "L3CHECK_DISPATCH_CONTEXT_TIMEOUT", e.DispatchContextTimeout)
	override(&c.Dispatch.Local, "L3CHECK_DISPATCH_LOCAL", e.DispatchLocal)

	override(&c.Serve.Listen, "L3CHECK_SERVE_LISTEN", e.ServeListen)
	override(&c.Serve.Interval, "L3CHECK_SERVE_INTERVAL", e.ServeInterval)

	override(&c.Output.Textfile, "L3CHECK_OUTPUT_TEXTFILE", e.OutputTextfile)
	override(&c.Log.Level, "L3CHECK_LOG_LEVEL", e.LogLevel)

	return nil
}

// override copies v into dst when key is set to a non-empty value
func override[T any](dst *T, key string, v *T) {
	if value, ok := os.LookupEnv(key); ok && value != "" && v != nil {
		*dst = *v
	}
}

// Validate checks the configuration needed by a check run
func (c *Config) Validate() error {
	var errs []error

	if c.Neutron.Endpoint == "" {
		errs = append(errs, errors.New("neutron.endpoint is required"))
	}
	if c.Neutron.Token == "" {
		errs = append(errs, errors.New("neutron.token is required"))
	}
	if c.Neutron.Timeout <= 0 {
		errs = append(errs, errors.New("neutron.timeout must be positive"))
	}
	if c.Neutron.Retries < 0 {
		errs = append(errs, errors.New("neutron.retries must not be negative"))
	}
	if c.Neutron.RetryDelay <= 0 {
		errs = append(errs, errors.New("neutron.retry_delay must be positive"))
	}
	if c.Dispatch.ContextTimeout <= 0 {
		errs = append(errs, errors.New("dispatch.context_timeout must be positive"))
	}
	if c.Dispatch.Workers < 0 {
		errs = append(errs, errors.New("dispatch.workers must not be negative"))
	}
	if c.Serve.Interval <= 0 {
		errs = append(errs, errors.New("serve.interval must be positive"))
	}
	if !c.Dispatch.Local && c.Containerd.Socket == "" {
		errs = append(errs, errors.New("containerd.socket is required unless dispatch.local is set"))
	}

	return errors.Join(errs...)
}

// NeutronClientConfig converts to the control plane client configuration
func (c *Config) NeutronClientConfig() neutron.Config {
	return neutron.Config{
		Endpoint:    c.Neutron.Endpoint,
		Token:       c.Neutron.Token,
		InsecureTLS: c.Neutron.InsecureTLS,
		Timeout:     c.Neutron.Timeout,
		Retries:     c.Neutron.Retries,
		RetryDelay:  c.Neutron.RetryDelay,
	}
}

// ContainerdProviderConfig converts to the containerd provider configuration
func (c *Config) ContainerdProviderConfig() runtime.ContainerdConfig {
	return runtime.ContainerdConfig{
		SocketPath:    c.Containerd.Socket,
		Namespace:     c.Containerd.Namespace,
		InspectorPath: c.Containerd.InspectorPath,
	}
}

// DispatcherConfig converts to the dispatcher configuration
func (c *Config) DispatcherConfig() dispatcher.Config {
	return dispatcher.Config{
		Filter:         c.Containerd.Filter,
		Workers:        c.Dispatch.Workers,
		ContextTimeout: c.Dispatch.ContextTimeout,
	}
}
