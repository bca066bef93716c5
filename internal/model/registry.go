package model

import (
	"fmt"
	"sort"
)

var Registry = map[string]*Resource{}

func InitRegistry(dir string) error {
	resources, err := LoadResourcesFromDir(dir)
	if err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := ValidateAll(resources); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	Registry = resources
	return nil
}

// ValidateAll checks every resource and rejects duplicate paths.
func ValidateAll(resources map[string]*Resource) error {
	paths := make(map[string]string, len(resources))
	for _, name := range SortedNames(resources) {
		res := resources[name]
		if err := res.Validate(); err != nil {
			return err
		}
		if other, ok := paths[res.Path]; ok {
			return fmt.Errorf("resources %s and %s share path %s", other, name, res.Path)
		}
		paths[res.Path] = name
	}
	return nil
}

func SortedNames(resources map[string]*Resource) []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
