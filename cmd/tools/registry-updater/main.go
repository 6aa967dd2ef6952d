// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"story-workers/internal/common/validation"
	"story-workers/pkg/registry"

	em "story-workers/internal/workers/generation/extract-modules"
	gs "story-workers/internal/workers/generation/generate-stories"
	gtc "story-workers/internal/workers/generation/generate-test-cases"
	rb "story-workers/internal/workers/generation/review-batch"
)

// builtInTaskTypes are the task types worker-manager registers handlers for.
var builtInTaskTypes = []string{em.TaskType, gs.TaskType, gtc.TaskType, rb.TaskType}

func main() {
	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		path := fs.String("path", "", "Registry file (default: built-in registry)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		reg, err := load(*path)
		if err != nil {
			return err
		}
		for _, a := range reg.Activities {
			fmt.Fprintf(out, "%-22s %-10s %-8s %s\n", a.TaskType, a.ImplementationStatus, a.Timeout, a.DisplayName)
		}
		return nil

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := fs.String("path", "", "Registry file (default: built-in registry)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		reg, err := load(*path)
		if err != nil {
			return err
		}
		if err := validateRegistry(reg); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil

	case "update":
		fs := flag.NewFlagSet("update", flag.ContinueOnError)
		path := fs.String("path", "", "Registry file to edit")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, description, timeout, retries)")
		value := fs.String("value", "", "New value for the field")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *path == "" || *id == "" || *field == "" || *value == "" {
			return fmt.Errorf("path, id, field, and value are required for update")
		}
		if err := updateActivity(*path, *id, *field, *value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", *id, *field, *value)
		return nil

	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		path := fs.String("path", "", "Destination file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *path == "" {
			return fmt.Errorf("path is required for export")
		}
		if err := saveRegistry(registry.Default(), *path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote built-in registry to %s\n", *path)
		return nil

	case "help":
		help(out)
		return nil
	}
	help(out)
	return fmt.Errorf("unknown command %q", command)
}

func load(path string) (*registry.ActivityRegistry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

func updateActivity(path, id, field, value string) error {
	reg, err := load(path)
	if err != nil {
		return err
	}

	var activity *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			activity = &reg.Activities[i]
			break
		}
	}
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "description":
		activity.Description = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return saveRegistry(reg, path)
}

// validateRegistry checks required fields, compiles every input schema, and
// makes sure each built-in worker has an entry.
func validateRegistry(reg *registry.ActivityRegistry) error {
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, activity := range reg.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if _, err := activity.TimeoutDuration(); err != nil {
			return err
		}
		if !activity.DeclaresError("INPUT_VALIDATION_FAILED") && len(activity.InputSchema) > 0 {
			return fmt.Errorf("activity %s validates input but does not declare INPUT_VALIDATION_FAILED", activity.ID)
		}
	}

	if _, err := validation.NewValidator(reg); err != nil {
		return err
	}

	for _, taskType := range builtInTaskTypes {
		if _, ok := reg.ByTaskType(taskType); !ok {
			return fmt.Errorf("no activity registered for worker %s", taskType)
		}
	}
	return nil
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := reg.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help(out io.Writer) {
	fmt.Fprintln(out, `
Usage: registry-updater <command> [flags]

Commands:
  list      List the activities of a registry
  validate  Validate a registry and compile its input schemas
  update    Update a field of one activity in a registry file
  export    Write the built-in registry to a file
  help      Show this help message

Examples:
  registry-updater validate
  registry-updater export -path configs/activities.json
  registry-updater update -path configs/activities.json -id generation.stories.generate -field timeout -value 180s`)
}
