package review

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var fieldCatalogYAML []byte

type fieldCatalog struct {
	Threat  []string `yaml:"threat"`
	Error   []string `yaml:"error"`
	UAS     []string `yaml:"uas"`
	General []string `yaml:"general"`
}

var (
	reviewableFields []string
	reviewableSet    map[string]struct{}
)

func init() {
	var cat fieldCatalog
	if err := yaml.Unmarshal(fieldCatalogYAML, &cat); err != nil {
		panic("review: embedded field catalog is invalid: " + err.Error())
	}
	for _, group := range [][]string{cat.Threat, cat.Error, cat.UAS, cat.General} {
		reviewableFields = append(reviewableFields, group...)
	}
	reviewableSet = make(map[string]struct{}, len(reviewableFields))
	for _, name := range reviewableFields {
		reviewableSet[name] = struct{}{}
	}
}

// ReviewableFields returns the fixed, ordered catalog of field names that
// review feedback may reference.
func ReviewableFields() []string {
	out := make([]string, len(reviewableFields))
	copy(out, reviewableFields)
	return out
}

// IsReviewableField reports whether name is in the catalog.
func IsReviewableField(name string) bool {
	_, ok := reviewableSet[name]
	return ok
}
