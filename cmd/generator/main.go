package main

import (
	"aireone.xyz/serverstatus/internal/apps/generator"
	"go.uber.org/zap"
)

//go:generate go run ./main.go -output ../../serverstatus-configuration-schema.json

func main() {
	logger := zap.Must(zap.NewDevelopment()).Named("generator")
	defer func() { _ = logger.Sync() }()

	cfg := generator.LoadFlag()

	schema, err := generator.GenerateSchema()
	if err != nil {
		logger.Fatal("Error generating schema", zap.Error(err))
	}

	if err := generator.WriteToFile(schema, cfg.GenerateSchemaFile); err != nil {
		logger.Fatal("Error writing schema to file", zap.Error(err))
	}
	logger.Info("Schema successfully generated", zap.String("file", cfg.GenerateSchemaFile))
}
