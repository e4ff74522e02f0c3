package generator

import (
	"encoding/json"
	"os"

	"aireone.xyz/serverstatus/internal/yamlconfig"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

const schemaTitle = "serverstatus configuration"

// GenerateSchema returns the JSON schema of the configuration file.
func GenerateSchema() (string, error) {
	s := jsonschema.Reflect(&yamlconfig.YamlConfig{})
	s.Title = schemaTitle

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "error encoding schema")
	}
	return string(data), nil
}

func WriteToFile(schema string, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "error creating %s", filePath)
	}
	defer file.Close()

	if _, err := file.WriteString(schema); err != nil {
		return errors.Wrapf(err, "error writing %s", filePath)
	}

	return nil
}
