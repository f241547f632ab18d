package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init-db":
		if err := runInitDB(os.Args[2:]); err != nil {
			sugar.Fatalf("init-db: %v", err)
		}
	case "seed":
		if err := runSeed(os.Args[2:]); err != nil {
			sugar.Fatalf("seed: %v", err)
		}
	case "export-schemas":
		if err := runExportSchemas(os.Args[2:]); err != nil {
			sugar.Fatalf("export-schemas: %v", err)
		}
	case "import-attributes":
		if err := runImportAttributes(os.Args[2:]); err != nil {
			sugar.Fatalf("import-attributes: %v", err)
		}
	case "issue-token":
		if err := runIssueToken(os.Args[2:]); err != nil {
			sugar.Fatalf("issue-token: %v", err)
		}
	default:
		sugar.Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	logger := zap.S()
	logger.Info("Usage: classifieds-tools <command> [options]")
	logger.Info("")
	logger.Info("Commands:")
	logger.Info("  init-db             Create the classifieds tables and indexes")
	logger.Info("  seed                Create the default vehicle categories and their attributes")
	logger.Info("  export-schemas      Write the JSON Schema of every category's attributes")
	logger.Info("  import-attributes   Replace a category's attribute schema from a JSON file")
	logger.Info("  issue-token         Print a signed bearer token for local testing")
}
