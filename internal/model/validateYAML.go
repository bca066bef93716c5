package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Разрешённые ключи для объектов
var allowedResourceKeys = map[string]bool{
	"table":                 true,
	"path":                  true,
	"primary_key":           true,
	"fields":                true,
	"allowed_methods":       true,
	"allowed_filter_fields": true,
	"allowed_update_fields": true,
	"page_size":             true,
	"ordering":              true,
	"cache":                 true,
	"soft_delete":           true,
	"auth_required":         true,
	"hooks":                 true,
}

var allowedCacheKeys = map[string]bool{
	"prefix": true,
	"ttl":    true,
}

var allowedFieldKeys = map[string]bool{
	"name":       true,
	"type":       true,
	"read_only":  true,
	"write_only": true,
	"required":   true,
	"nullable":   true,
	"default":    true,
	"max_length": true,
	"min":        true,
	"max":        true,
	"choices":    true,
	"format":     true,
	"auto":       true,
}

// Разрешённые значения для type в полях
var allowedFieldTypeValues = map[string]bool{
	"int":      true,
	"float":    true,
	"string":   true,
	"text":     true,
	"bool":     true,
	"date":     true,
	"datetime": true,
}

var allowedFormatValues = map[string]bool{
	"email": true,
	"url":   true,
}

var allowedAutoValues = map[string]bool{
	"now_add": true,
	"now":     true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "resource"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "resource":
			allowedKeys = allowedResourceKeys
		case "cache":
			allowedKeys = allowedCacheKeys
		case "field":
			allowedKeys = allowedFieldKeys
		default:
			return fmt.Errorf("unexpected mapping in %s (line %d)", context, node.Line)
		}

		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s (line %d)", key, context, keyNode.Line)
			}

			if context == "field" {
				if err := validateFieldValue(key, valNode); err != nil {
					return err
				}
			}

			nextContext := "scalar"
			switch {
			case context == "resource" && key == "fields":
				nextContext = "fields-seq"
			case context == "resource" && key == "cache":
				nextContext = "cache"
			case key == "choices" || key == "ordering" || key == "default" ||
				key == "allowed_methods" || key == "allowed_filter_fields" || key == "allowed_update_fields":
				nextContext = "list"
			}

			if err := validateYAMLNode(valNode, nextContext); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		switch context {
		case "fields-seq":
			for _, item := range node.Content {
				if err := validateYAMLNode(item, "field"); err != nil {
					return err
				}
			}
		case "list":
			for _, item := range node.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("list items must be scalars (line %d)", item.Line)
				}
			}
		default:
			return fmt.Errorf("unexpected list in %s (line %d)", context, node.Line)
		}

	case yaml.ScalarNode:
		if context == "fields-seq" {
			return fmt.Errorf("fields must be a list (line %d)", node.Line)
		}
	}

	return nil
}

func validateFieldValue(key string, val *yaml.Node) error {
	var allowed map[string]bool
	switch key {
	case "type":
		allowed = allowedFieldTypeValues
	case "format":
		allowed = allowedFormatValues
	case "auto":
		allowed = allowedAutoValues
	default:
		return nil
	}
	if !allowed[val.Value] {
		return fmt.Errorf("unknown %s value '%s' in field (line %d)", key, val.Value, val.Line)
	}
	return nil
}
