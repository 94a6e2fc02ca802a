package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Job describes a one-shot scan run read from a YAML file.
type Job struct {
	Sessions []string `yaml:"sessions"`
	Links    []string `yaml:"links"`
	Limit    int      `yaml:"limit"`
	Output   string   `yaml:"output"` // csv path; empty uses a generated name
	Top      int      `yaml:"top"`
}

// LoadJob reads and parses a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	job := &Job{}
	if err := yaml.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return job, nil
}
