package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
	pkgerrors "github.com/mgmonteleone/AtlasFleetReport/internal/pkg/errors"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings like "5s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}

	d.Duration = parsed

	return nil
}

// Config is the top-level application configuration.
type Config struct {
	Atlas  AtlasConfig  `yaml:"atlas"`
	Report ReportConfig `yaml:"report"`
	Sinks  SinksConfig  `yaml:"sinks"`
}

// AtlasConfig holds the Admin API credentials and the run scope.
type AtlasConfig struct {
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	OrgID      string `yaml:"org_id"`
	// ProjectIDs limits the run to these projects. Every project of OrgID is reported when empty.
	ProjectIDs []string `yaml:"project_ids"`
	BaseURL    string   `yaml:"base_url"`
	Timeout    Duration `yaml:"timeout"`
	PageSize   int      `yaml:"page_size"`
}

// ReportConfig holds the run parameters.
type ReportConfig struct {
	Region           string `yaml:"region"`
	Granularity      string `yaml:"granularity"`
	Period           string `yaml:"period"`
	IncludeHost      bool   `yaml:"include_host"`
	IncludeNamespace bool   `yaml:"include_namespace"`
	IncludeDisk      bool   `yaml:"include_disk"`
	ClusterName      string `yaml:"cluster_name"`
	Concurrency      int    `yaml:"concurrency"`
}

// SinksConfig enables and configures the record destinations.
type SinksConfig struct {
	Sheets   SheetsConfig   `yaml:"sheets"`
	DocStore DocStoreConfig `yaml:"docstore"`
	Parquet  ParquetConfig  `yaml:"parquet"`
	Forward  ForwardConfig  `yaml:"forward"`
}

// SheetsConfig - spreadsheet sink
type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URI             string `yaml:"uri"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DocStoreConfig - document store sink
type DocStoreConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// ParquetConfig - parquet file sink
type ParquetConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ForwardConfig - gRPC forwarding sink
type ForwardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Method  string `yaml:"method"`
	Token   string `yaml:"token"`
}

// Default returns the configuration used when the file leaves a setting out.
func Default() *Config {
	return &Config{
		Atlas: AtlasConfig{
			Timeout:  Duration{30 * time.Second},
			PageSize: 500,
		},
		Report: ReportConfig{
			Region:           "US_EAST_1",
			Granularity:      measurement.Hour.Name(),
			Period:           measurement.Weeks1.Name(),
			IncludeHost:      true,
			IncludeNamespace: true,
			IncludeDisk:      true,
			Concurrency:      1,
		},
		Sinks: SinksConfig{
			DocStore: DocStoreConfig{Database: "fleetReport"},
			Parquet:  ParquetConfig{Path: "fleet.parquet"},
		},
	}
}

// Load reads the YAML config file at path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // nolint: gosec
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile: %w", err)
		}

		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("applyEnv: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides settings from the environment. Setting a sink's location enables it.
func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) bool {
		v, ok := lookup(key)
		if ok && v != "" {
			*dst = v
			return true
		}
		return false
	}

	str("ATLAS_USER", &cfg.Atlas.PublicKey)
	str("ATLAS_KEY", &cfg.Atlas.PrivateKey)
	str("ATLAS_ORG", &cfg.Atlas.OrgID)
	str("ATLAS_REGION", &cfg.Report.Region)

	var group string
	if str("ATLAS_GROUP", &group) {
		cfg.Atlas.ProjectIDs = splitList(group)
	}

	if str("ATLAS_DB_CONN", &cfg.Sinks.DocStore.URI) {
		cfg.Sinks.DocStore.Enabled = true
	}

	if str("SHEET_URI", &cfg.Sinks.Sheets.URI) {
		cfg.Sinks.Sheets.Enabled = true
	}
	str("GOOGLE_APPLICATION_CREDENTIALS", &cfg.Sinks.Sheets.CredentialsFile)

	var concurrency string
	if str("FLEET_REPORT_CONCURRENCY", &concurrency) {
		n, err := strconv.Atoi(concurrency)
		if err != nil {
			return fmt.Errorf("FLEET_REPORT_CONCURRENCY: %w", err)
		}
		cfg.Report.Concurrency = n
	}

	return nil
}

// Window parses the configured granularity and period.
func (cfg *Config) Window() (measurement.Granularity, measurement.Period, error) {
	g, err := measurement.ParseGranularity(cfg.Report.Granularity)
	if err != nil {
		return measurement.Granularity{}, measurement.Period{}, err
	}

	p, err := measurement.ParsePeriod(cfg.Report.Period)
	if err != nil {
		return measurement.Granularity{}, measurement.Period{}, err
	}

	return g, p, nil
}

// ValidateAtlas checks the credentials and the run scope.
func (cfg *Config) ValidateAtlas() error {
	if errs := cfg.atlasErrors(); len(errs) > 0 {
		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

func (cfg *Config) atlasErrors() []error {
	var errs []error

	if cfg.Atlas.PublicKey == "" || cfg.Atlas.PrivateKey == "" {
		errs = append(errs, errors.New("atlas: public_key and private_key are required"))
	}
	if cfg.Atlas.OrgID == "" && len(cfg.Atlas.ProjectIDs) == 0 {
		errs = append(errs, errors.New("atlas: org_id or project_ids is required"))
	}
	if cfg.Atlas.PageSize < 0 {
		errs = append(errs, errors.New("atlas: page_size must not be negative"))
	}

	return errs
}

// Validate checks the settings a report run needs.
func (cfg *Config) Validate() error {
	errs := cfg.atlasErrors()

	if cfg.Report.Region == "" {
		errs = append(errs, errors.New("report: region is required"))
	}
	if _, _, err := cfg.Window(); err != nil {
		errs = append(errs, fmt.Errorf("report: %w", err))
	}
	if cfg.Report.Concurrency < 0 {
		errs = append(errs, errors.New("report: concurrency must not be negative"))
	}

	s := cfg.Sinks
	if s.Sheets.Enabled && (s.Sheets.URI == "" || s.Sheets.CredentialsFile == "") {
		errs = append(errs, errors.New("sinks.sheets: uri and credentials_file are required"))
	}
	if s.DocStore.Enabled && s.DocStore.URI == "" {
		errs = append(errs, errors.New("sinks.docstore: uri is required"))
	}
	if s.Parquet.Enabled && s.Parquet.Path == "" {
		errs = append(errs, errors.New("sinks.parquet: path is required"))
	}
	if s.Forward.Enabled && s.Forward.Addr == "" {
		errs = append(errs, errors.New("sinks.forward: addr is required"))
	}
	if !s.Sheets.Enabled && !s.DocStore.Enabled && !s.Parquet.Enabled && !s.Forward.Enabled {
		errs = append(errs, errors.New("sinks: no sink enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// EnableSinks enables exactly the named sinks.
func (cfg *Config) EnableSinks(names []string) error {
	s := &cfg.Sinks
	s.Sheets.Enabled, s.DocStore.Enabled, s.Parquet.Enabled, s.Forward.Enabled = false, false, false, false

	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "sheets":
			s.Sheets.Enabled = true
		case "docstore":
			s.DocStore.Enabled = true
		case "parquet":
			s.Parquet.Enabled = true
		case "forward":
			s.Forward.Enabled = true
		default:
			return fmt.Errorf("%w: %q", pkgerrors.ErrUnknownSink, name)
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
