package utils

import (
	"errors"
	"strings"

	"github.com/iancoleman/strcase"
)

// validate to prevent security issue as https://codeql.github.com/codeql-query-help/go/go-path-injection/
func ValidateFilePath(filePath string) error {
	if strings.Contains(filePath, "..") {
		return errors.New("the file path should not contain special characters")
	}
	return nil
}

// ConvertAllKeySnakeCase traverses a decoded YAML or JSON object to replace all keys to snake_case.
func ConvertAllKeySnakeCase(i any) {

	switch v := i.(type) {
	case map[string]any:
		for k, vv := range v {
			sc := strcase.ToSnake(k)
			if sc != k {
				v[sc] = v[k]
				delete(v, k)
			}
			ConvertAllKeySnakeCase(vv)
		}
	case []any:
		for _, vv := range v {
			ConvertAllKeySnakeCase(vv)
		}
	case []map[string]any:
		for _, vv := range v {
			ConvertAllKeySnakeCase(vv)
		}
	}
}
