package registry

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Dispositions []Definition `yaml:"dispositions"`
}

// SeedFromFile loads disposition definitions from a YAML file and upserts them.
// A missing path is not an error; the registry then serves whatever the table
// already holds.
func SeedFromFile(ctx context.Context, repo *Repository, path string) (int, error) {
	if path == "" {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parse registry seed: %w", err)
	}

	for _, d := range seed.Dispositions {
		if d.ID == "" {
			return 0, fmt.Errorf("registry seed entry missing id")
		}
		if err := repo.Upsert(ctx, d); err != nil {
			return 0, err
		}
	}

	return len(seed.Dispositions), nil
}
