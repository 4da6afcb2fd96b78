package report

import (
	"os"

	"gopkg.in/yaml.v3"
)

// WriteSummary writes a summary to a YAML file
func WriteSummary(summary *Summary, path string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadSummary reads a summary from a YAML file
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return nil, err
	}

	return &summary, nil
}
