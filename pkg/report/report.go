// Package report writes analysis results to disk: per-run result
// directories, CSV tables, and Excel workbooks.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Run is one result-producing invocation. All files of the run land in
// a single directory named after the start time and a short run ID.
type Run struct {
	ID      string
	Dir     string
	Source  string
	Started time.Time

	files []string
}

// NewRun creates the result directory for a run over the given source
// file.
func NewRun(baseDir, source string) (*Run, error) {
	id := uuid.New().String()[:8]
	started := time.Now().UTC()

	dir := filepath.Join(baseDir, fmt.Sprintf("%s-%s", started.Format("20060102-150405"), id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("report: create run dir: %w", err)
	}

	return &Run{
		ID:      id,
		Dir:     dir,
		Source:  source,
		Started: started,
	}, nil
}

// Path resolves a result file name inside the run directory and records
// it for the manifest.
func (r *Run) Path(name string) string {
	path := filepath.Join(r.Dir, name)
	r.files = append(r.files, path)
	return path
}

// Files returns the recorded result file paths, sorted.
func (r *Run) Files() []string {
	out := make([]string, len(r.files))
	copy(out, r.files)
	sort.Strings(out)
	return out
}

// manifest is the on-disk run description.
type manifest struct {
	RunID    string    `yaml:"run_id"`
	Source   string    `yaml:"source"`
	Started  time.Time `yaml:"started"`
	Finished time.Time `yaml:"finished"`
	Files    []string  `yaml:"files"`
}

// WriteManifest writes run.yaml describing the run and its outputs.
func (r *Run) WriteManifest() error {
	files := make([]string, 0, len(r.files))
	for _, f := range r.Files() {
		files = append(files, filepath.Base(f))
	}

	m := manifest{
		RunID:    r.ID,
		Source:   r.Source,
		Started:  r.Started,
		Finished: time.Now().UTC(),
		Files:    files,
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.Dir, "run.yaml"), data, 0644)
}
