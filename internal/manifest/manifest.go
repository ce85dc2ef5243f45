// Package manifest builds the provenance record for a run: toolkit version
// and commit, dataset identity and content hash, provider configuration with
// credentials redacted, and the sampling parameters. The manifest makes a
// report auditable and lets the statistics layer refuse to aggregate reports
// produced from different inputs.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/openclaw/membench/internal/models"
)

// ToolkitName and Version identify the harness build recorded in manifests.
const (
	ToolkitName = "membench"
	Version     = "0.2.0"
)

// RedactionMarker replaces secret-looking config values in manifests.
const RedactionMarker = "***REDACTED***"

var secretHints = []string{"token", "secret", "password", "apikey", "api_key"}

// SanitizeConfig returns a copy of config with every key whose name suggests
// a credential (case-insensitive substring match) replaced by the redaction
// marker. Non-secret keys pass through unchanged.
func SanitizeConfig(config map[string]any) map[string]any {
	out := make(map[string]any, len(config))
	for key, value := range config {
		if looksSecret(key) {
			out[key] = RedactionMarker
			continue
		}
		out[key] = value
	}
	return out
}

func looksSecret(key string) bool {
	k := strings.ToLower(key)
	for _, hint := range secretHints {
		if strings.Contains(k, hint) {
			return true
		}
	}
	return false
}

// FileSHA256 returns the hex-encoded SHA-256 of a file's contents.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadDatasetMeta reads the optional sidecar metadata file next to a dataset
// (<dataset>.meta.json). Returns nil when the sidecar is absent or malformed;
// sidecar metadata is advisory provenance, never a load requirement.
func ReadDatasetMeta(datasetPath string) map[string]any {
	sidecar := filepath.Join(filepath.Dir(datasetPath), filepath.Base(datasetPath)+".meta.json")
	data, err := os.ReadFile(sidecar)
	if err != nil {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return meta
}

// ResolveGitCommit returns the HEAD commit of the repository at repoDir, or
// an empty string when it cannot be resolved.
func ResolveGitCommit(repoDir string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// BuildOptions carries everything a manifest records.
type BuildOptions struct {
	RunID          string
	Provider       string
	ProviderConfig map[string]any
	DatasetPath    string
	DatasetName    string
	RepoDir        string
	TopK           int
	Limit          *int
	SampleSize     *int
	SampleSeed     *int64
	SkipIngest     bool
	PreindexOnce   bool
	FailFast       bool
}

// Build assembles the manifest, hashing the dataset file and redacting the
// provider configuration.
func Build(opts BuildOptions) (*models.Manifest, error) {
	sha, err := FileSHA256(opts.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("hashing dataset: %w", err)
	}

	absPath, err := filepath.Abs(opts.DatasetPath)
	if err != nil {
		absPath = opts.DatasetPath
	}

	return &models.Manifest{
		Schema:       models.ManifestSchema,
		Track:        "retrieval",
		RunID:        opts.RunID,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Toolkit: models.ToolkitInfo{
			Name:      ToolkitName,
			Version:   Version,
			GitCommit: ResolveGitCommit(opts.RepoDir),
		},
		Provider: models.ManifestProvider{
			Name:   opts.Provider,
			Config: SanitizeConfig(opts.ProviderConfig),
		},
		Dataset: models.ManifestDataset{
			Name:   opts.DatasetName,
			Path:   absPath,
			SHA256: sha,
			Meta:   ReadDatasetMeta(opts.DatasetPath),
		},
		Parameters: models.ManifestParameters{
			TopK:         opts.TopK,
			Limit:        opts.Limit,
			SampleSize:   opts.SampleSize,
			SampleSeed:   opts.SampleSeed,
			SkipIngest:   opts.SkipIngest,
			PreindexOnce: opts.PreindexOnce,
			FailFast:     opts.FailFast,
		},
		Runtime: models.RuntimeInfo{
			GoVersion: runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
		},
	}, nil
}
