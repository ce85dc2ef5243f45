package models

// ManifestSchema is the artifact schema identifier for run manifests.
const ManifestSchema = "membench/run-manifest/v1"

// Manifest is the provenance record for one run: exactly what inputs and
// configuration produced a given report. Independent of results.
type Manifest struct {
	Schema       string             `json:"schema"`
	Track        string             `json:"track"`
	RunID        string             `json:"run_id"`
	CreatedAtUTC string             `json:"created_at_utc"`
	Toolkit      ToolkitInfo        `json:"toolkit"`
	Provider     ManifestProvider   `json:"provider"`
	Dataset      ManifestDataset    `json:"dataset"`
	Parameters   ManifestParameters `json:"parameters"`
	Runtime      RuntimeInfo        `json:"runtime"`
}

// ToolkitInfo identifies the harness build that produced a report.
type ToolkitInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
}

// ManifestProvider names the provider and its sanitized configuration.
// Secret-looking keys are redacted before the manifest is persisted.
type ManifestProvider struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

// ManifestDataset records the dataset identity, including a content hash so
// reports can be compared only when they were produced from identical data.
type ManifestDataset struct {
	Name   string         `json:"name"`
	Path   string         `json:"path"`
	SHA256 string         `json:"sha256"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// ManifestParameters are the sampling and execution parameters of the run.
type ManifestParameters struct {
	TopK         int    `json:"top_k"`
	Limit        *int   `json:"limit"`
	SampleSize   *int   `json:"sample_size"`
	SampleSeed   *int64 `json:"sample_seed"`
	SkipIngest   bool   `json:"skip_ingest"`
	PreindexOnce bool   `json:"preindex_once"`
	FailFast     bool   `json:"fail_fast"`
}

// RuntimeInfo captures the platform the run executed on.
type RuntimeInfo struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}
