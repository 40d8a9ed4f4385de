package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/analysis"
	"github.com/KaramelBytes/edaloom-cli/internal/utils"
	gojson "github.com/goccy/go-json"
)

const (
	projectFileName = "project.json"
	summariesDir    = "dataset_summaries"
)

// Project is a named folder collecting generated dataset summaries.
type Project struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Summaries   map[string]*Summary `json:"summaries"`
	Settings    *Settings           `json:"settings"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// Settings override global report defaults for this project. Zero values
// inherit.
type Settings struct {
	SampleRows  int    `json:"sample_rows,omitempty"`
	ShowRemoved *bool  `json:"show_removed,omitempty"`
	Format      string `json:"format,omitempty"`
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Summaries:   make(map[string]*Summary),
		Settings:    &Settings{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, projectFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := gojson.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Summaries == nil {
		p.Summaries = make(map[string]*Summary)
	}
	if p.Settings == nil {
		p.Settings = &Settings{}
	}
	p.rootDir = dir
	return &p, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureProjectDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, projectFileName), data)
}

// AttachReport writes the markdown rendering of rep into the project folder
// and records it under source (the dataset path as given). Re-attaching the
// same source replaces its summary; a different source with the same base
// name gets a numbered file instead of overwriting.
func (p *Project) AttachReport(rep *analysis.Report, source, description string) (*Summary, error) {
	if rep == nil {
		return nil, errors.New("report is nil")
	}
	if p.rootDir == "" {
		return nil, errors.New("project root directory not set")
	}
	if source == "" {
		source = rep.Name
	}
	outDir := filepath.Join(p.rootDir, summariesDir)
	if err := utils.EnsureProjectDir(outDir); err != nil {
		return nil, fmt.Errorf("ensure summaries dir: %w", err)
	}
	if p.Summaries == nil {
		p.Summaries = make(map[string]*Summary)
	}

	rel := ""
	taken := map[string]bool{}
	for id, s := range p.Summaries {
		if s.Source == source {
			rel = s.File
			delete(p.Summaries, id)
			continue
		}
		taken[s.File] = true
	}
	if rel == "" {
		base := utils.SafeBaseName(rep.Name)
		rel = filepath.Join(summariesDir, base+".summary.md")
		for idx := 2; taken[rel]; idx++ {
			rel = filepath.Join(summariesDir, fmt.Sprintf("%s__%d.summary.md", base, idx))
		}
	}
	if err := utils.SafeWriteFile(filepath.Join(p.rootDir, rel), []byte(rep.Markdown())); err != nil {
		return nil, fmt.Errorf("write project summary: %w", err)
	}

	if description == "" {
		description = "Auto-generated dataset summary"
	}
	s := &Summary{
		ID:              rep.ID,
		Name:            rep.Name,
		Source:          source,
		Format:          rep.Format,
		File:            rel,
		Description:     description,
		Rows:            rep.Rows,
		CleanedRows:     rep.CleanedRows,
		RemovedMissing:  rep.RemovedMissing,
		RemovedOutliers: rep.RemovedOutliers,
		AddedAt:         time.Now(),
	}
	p.Summaries[s.ID] = s
	p.UpdatedAt = time.Now()
	return s, nil
}

// Remove drops a summary by ID (or unique ID prefix) and deletes its file.
func (p *Project) Remove(idOrPrefix string) (*Summary, error) {
	var match *Summary
	for id, s := range p.Summaries {
		if id == idOrPrefix {
			match = s
			break
		}
		if strings.HasPrefix(id, idOrPrefix) {
			if match != nil {
				return nil, fmt.Errorf("summary id prefix %q is ambiguous", idOrPrefix)
			}
			match = s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no summary with id %q", idOrPrefix)
	}
	delete(p.Summaries, match.ID)
	if err := os.Remove(filepath.Join(p.rootDir, match.File)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove summary file: %w", err)
	}
	p.UpdatedAt = time.Now()
	return match, nil
}

// SortedSummaries returns the summaries ordered by source name.
func (p *Project) SortedSummaries() []*Summary {
	out := make([]*Summary, 0, len(p.Summaries))
	for _, s := range p.Summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source == out[j].Source {
			return out[i].ID < out[j].ID
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// ReportOptions applies the project's overrides to base.
func (p *Project) ReportOptions(base analysis.Options) analysis.Options {
	if p.Settings == nil {
		return base
	}
	if p.Settings.SampleRows > 0 {
		base.SampleRows = p.Settings.SampleRows
	}
	if p.Settings.ShowRemoved != nil {
		base.ShowRemoved = *p.Settings.ShowRemoved
	}
	return base
}

// Digest concatenates every attached summary into one document, in a
// stable order.
func (p *Project) Digest() (string, error) {
	if p == nil {
		return "", errors.New("project is nil")
	}
	if len(p.Summaries) == 0 {
		return "", errors.New("no dataset summaries attached to project")
	}
	var sb strings.Builder
	sb.WriteString("[PROJECT]\n")
	sb.WriteString(p.Name)
	if p.Description != "" {
		sb.WriteString(" (")
		sb.WriteString(p.Description)
		sb.WriteString(")")
	}
	sb.WriteString("\n\n[DATASET SUMMARIES]\n")
	for _, s := range p.SortedSummaries() {
		b, err := os.ReadFile(filepath.Join(p.rootDir, s.File))
		if err != nil {
			return "", fmt.Errorf("read summary %s: %w", s.File, err)
		}
		sb.WriteString("--- Dataset: ")
		sb.WriteString(s.Name)
		if s.Description != "" {
			sb.WriteString(" (")
			sb.WriteString(s.Description)
			sb.WriteString(")")
		}
		sb.WriteString(" ---\n")
		sb.Write(b)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}
