package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// defaultablePaths lists the configuration paths that fall back to the
// built-in defaults when the loaded document leaves them empty or absent.
var defaultablePaths = []string{
	"information.exclusion_file",
	"information.keep_daily",
	"binaries.restic",
	"email.enable",
	"email.from",
	"email.recipient",
	"email.host",
	"email.port",
	"email.max_try",
	"email.timeout",
	"metrics.enable",
	"metrics.path",
}

// requiredPaths lists the configuration paths that must be non-empty.
// A run never starts while any of them is missing.
var requiredPaths = []string{
	"information.client_name",
	"information.server_name",
	"information.rclone_connection_name",
	"information.bucket_name",
}

var multiSlash = regexp.MustCompile(`/{2,}`)

// ValidationError reports every required configuration path that is missing
// or empty. It aborts the run before any step is recorded.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required configuration fields: %s", strings.Join(e.Missing, ", "))
}

// EmailConfig holds the email notification settings.
type EmailConfig struct {
	Enabled   bool
	From      string
	Recipient string
	Host      string
	Port      int
	MaxTry    int
	Timeout   int // seconds between delivery attempts
}

// MetricsConfig holds the Prometheus textfile exporter settings.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ResolvedConfig is the immutable-after-construction view of one run's
// configuration: loaded document merged with defaults, validated, plus the
// derived fields.
type ResolvedConfig struct {
	Document *Document

	ClientName     string
	ServerName     string
	ConnectionName string
	BucketName     string
	ExclusionFile  string
	KeepDaily      int
	ResticBinary   string

	// Derived fields
	RepoName   string
	BackupName string
	Repository string
	ResticCmd  string

	Email   EmailConfig
	Metrics MetricsConfig
}

// Defaults returns the built-in fallback document.
func Defaults() *Document {
	return NewDocument(map[string]interface{}{
		"information": map[string]interface{}{
			"exclusion_file": "exclude.txt",
			"keep_daily":     30,
		},
		"binaries": map[string]interface{}{
			"restic": "restic",
		},
		"email": map[string]interface{}{
			"enable":    false,
			"from":      "backup@localhost",
			"recipient": "",
			"host":      "localhost",
			"port":      25,
			"max_try":   3,
			"timeout":   5,
		},
		"metrics": map[string]interface{}{
			"enable": false,
			"path":   "/var/lib/prometheus/node-exporter",
		},
	})
}

// LoadDocument reads and decodes the YAML configuration file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file %s: %w", path, err)
	}
	return ParseDocument(data)
}

// Resolve merges the loaded document with defaults, validates the required
// fields and computes the derived backup name, repository address and restic
// invocation for the given repository. This step is pure: no external I/O.
func Resolve(defaults, loaded *Document, repoName string) (*ResolvedConfig, error) {
	doc := loaded.Copy()

	for _, path := range defaultablePaths {
		if !isMissing(doc, path) {
			continue
		}
		value, err := defaults.Get(path)
		if err != nil {
			continue
		}
		setCreating(doc, path, value)
	}

	var missing []string
	for _, path := range requiredPaths {
		if isMissing(doc, path) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	cfg := &ResolvedConfig{Document: doc, RepoName: repoName}

	var err error
	if cfg.ClientName, err = doc.ResolveString("information.client_name"); err != nil {
		return nil, err
	}
	if cfg.ServerName, err = doc.ResolveString("information.server_name"); err != nil {
		return nil, err
	}
	if cfg.ConnectionName, err = doc.ResolveString("information.rclone_connection_name"); err != nil {
		return nil, err
	}
	if cfg.BucketName, err = doc.ResolveString("information.bucket_name"); err != nil {
		return nil, err
	}
	if cfg.ExclusionFile, err = doc.ResolveString("information.exclusion_file"); err != nil {
		return nil, err
	}
	if cfg.KeepDaily, err = resolveInt(doc, "information.keep_daily"); err != nil {
		return nil, err
	}
	if cfg.ResticBinary, err = doc.ResolveString("binaries.restic"); err != nil {
		return nil, err
	}

	cfg.BackupName = ComposeBackupName(cfg.ClientName, cfg.ServerName, repoName)
	cfg.Repository = CollapseSlashes(fmt.Sprintf("rclone:%s:%s/%s", cfg.ConnectionName, cfg.BucketName, cfg.BackupName))
	cfg.ResticCmd = fmt.Sprintf("%s -r %s", cfg.ResticBinary, cfg.Repository)

	doc.Attach("generated", map[string]interface{}{
		"backup_name": cfg.BackupName,
		"repository":  cfg.Repository,
		"restic_cmd":  cfg.ResticCmd,
	})

	if cfg.Email, err = resolveEmail(doc); err != nil {
		return nil, err
	}
	if cfg.Metrics, err = resolveMetrics(doc); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveEmail(doc *Document) (EmailConfig, error) {
	var email EmailConfig
	var err error
	if email.Enabled, err = resolveBool(doc, "email.enable"); err != nil {
		return email, err
	}
	if email.From, err = doc.ResolveString("email.from"); err != nil {
		return email, err
	}
	if email.Recipient, err = doc.ResolveString("email.recipient"); err != nil {
		return email, err
	}
	if email.Host, err = doc.ResolveString("email.host"); err != nil {
		return email, err
	}
	if email.Port, err = resolveInt(doc, "email.port"); err != nil {
		return email, err
	}
	if email.MaxTry, err = resolveInt(doc, "email.max_try"); err != nil {
		return email, err
	}
	if email.Timeout, err = resolveInt(doc, "email.timeout"); err != nil {
		return email, err
	}
	return email, nil
}

func resolveMetrics(doc *Document) (MetricsConfig, error) {
	var metrics MetricsConfig
	var err error
	if metrics.Enabled, err = resolveBool(doc, "metrics.enable"); err != nil {
		return metrics, err
	}
	if metrics.Path, err = doc.ResolveString("metrics.path"); err != nil {
		return metrics, err
	}
	return metrics, nil
}

// ComposeBackupName joins client, server and repository names with slashes,
// collapsing the runs of separators left behind by empty components.
func ComposeBackupName(clientName, serverName, repoName string) string {
	joined := CollapseSlashes(fmt.Sprintf("%s/%s/%s", clientName, serverName, repoName))
	return strings.Trim(joined, "/")
}

// CollapseSlashes reduces any run of 2+ consecutive slashes to a single one.
func CollapseSlashes(s string) string {
	return multiSlash.ReplaceAllString(s, "/")
}

// isMissing reports whether a path fails to resolve or resolves to an empty
// string. Note the asymmetry with store resolution: for default-merging an
// empty string counts as missing, while boolean false does not.
func isMissing(doc *Document, path string) bool {
	value, err := doc.Resolve(path)
	if err != nil {
		return true
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

// setCreating assigns a value at a dotted path, creating intermediate group
// nodes as needed. Only the merge step may grow the tree; the store-level
// Set keeps the no-create contract.
func setCreating(doc *Document, path string, value interface{}) {
	segments := strings.Split(path, ".")
	parent := doc.root
	for i := 0; i < len(segments)-1; i++ {
		child, ok := parent[segments[i]].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			parent[segments[i]] = child
		}
		parent = child
	}
	parent[segments[len(segments)-1]] = copyValue(value)
}

func resolveInt(doc *Document, path string) (int, error) {
	value, err := doc.Resolve(path)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("invalid integer at %s: %q", path, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid integer at %s: %v", path, value)
	}
}

func resolveBool(doc *Document, path string) (bool, error) {
	value, err := doc.Resolve(path)
	if err != nil {
		if errors.Is(err, ErrUnresolvedField) {
			return false, nil
		}
		return false, err
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			return true, nil
		default:
			return false, nil
		}
	default:
		return false, nil
	}
}
