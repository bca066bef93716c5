package model

import (
	"ShelfAPI/internal/logger"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func LoadResourcesFromDir(dir string) (map[string]*Resource, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no resource files in %s", dir)
	}

	resources := make(map[string]*Resource, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		res, err := ParseResource(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		resources[name] = res
		logger.Info("resource_loaded", map[string]any{
			"resource": name,
			"table":    res.Table,
			"fields":   len(res.Fields),
		})
	}
	return resources, nil
}

// ParseResource validates the YAML structure and decodes one resource.
func ParseResource(name string, data []byte) (*Resource, error) {
	// 1. Разбираем в yaml.Node для структурной валидации
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "resource"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// 2. Теперь уже Decode в ресурс
	var res Resource
	if err := root.Decode(&res); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	res.Name = name
	res.Prepare()
	return &res, nil
}
