package aoa

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadImportance reads a YAML mapping of feature name to importance, as
// exported from the classifier's variable importance table:
//
//	B04: 12.5
//	B08: 30.1
//	NDVI: 41.0
func LoadImportance(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "aoa: read importance %s", path)
	}
	return ParseImportance(data)
}

// ParseImportance decodes a YAML importance mapping.
func ParseImportance(data []byte) (map[string]float64, error) {
	var m map[string]float64
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "aoa: parse importance")
	}
	if len(m) == 0 {
		return nil, eris.New("aoa: importance file is empty")
	}
	return m, nil
}
