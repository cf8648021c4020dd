package project

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/report"
)

// JobVersion is written into every job file. Files with another major
// version are rejected.
const JobVersion = "1.0.0"

var ErrUnsupportedVersion = errors.New("unsupported job file version")

// Job is a saved optimization request, optionally with the plan it
// produced.
type Job struct {
	Version   string           `json:"version"`
	CreatedAt string           `json:"created_at"`
	Name      string           `json:"name,omitempty"`
	Request   model.Request    `json:"request"`
	Result    *report.Response `json:"result,omitempty"`
}

// NewJob wraps req in a job envelope stamped with the current time.
func NewJob(name string, req model.Request) Job {
	return Job{
		Version:   JobVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Name:      name,
		Request:   req,
	}
}

// SaveJob writes job to path.
func SaveJob(path string, job Job) error {
	if job.Version == "" {
		job.Version = JobVersion
	}
	if err := writeJSON(path, job); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}
	logger.For(logger.ComponentProject).Debugf("saved job %q to %s", job.Name, path)
	return nil
}

// LoadJob reads a job file. A bare request without an envelope is accepted
// and wrapped.
func LoadJob(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("failed to read job file: %w", err)
	}
	return ParseJob(data)
}

// ParseJob decodes job file content.
func ParseJob(data []byte) (Job, error) {
	var probe struct {
		Version string          `json:"version"`
		Panels  json.RawMessage `json:"panels"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Job{}, fmt.Errorf("failed to parse job file: %w", err)
	}

	if probe.Version == "" {
		if probe.Panels == nil {
			return Job{}, errors.New("invalid job file: missing version field")
		}
		var req model.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return Job{}, fmt.Errorf("failed to parse request: %w", err)
		}
		return NewJob("", req), nil
	}

	if major, _, _ := strings.Cut(probe.Version, "."); major != "1" {
		return Job{}, fmt.Errorf("%w: %s", ErrUnsupportedVersion, probe.Version)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("failed to parse job file: %w", err)
	}
	return job, nil
}
