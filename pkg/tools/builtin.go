package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/registry"
)

type echoArgs struct {
	Text string `json:"text" jsonschema:"Text to echo back"`
}

var echoTool = registry.MustNewTool("Echo back the provided text",
	func(_ context.Context, a echoArgs) (*models.ToolCallResult, error) {
		return models.TextResult("Echo: " + a.Text), nil
	})

var systemInfoTool = registry.MustNewTool("Get basic system information",
	func(context.Context, struct{}) (*models.ToolCallResult, error) {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		return models.TextResult(fmt.Sprintf(
			"System Information:\n- OS: %s\n- Architecture: %s\n- Hostname: %s\n- CPUs: %d\n- Runtime: %s",
			runtime.GOOS, runtime.GOARCH, hostname, runtime.NumCPU(), runtime.Version())), nil
	})

type listFilesArgs struct {
	Path string `json:"path,omitempty" jsonschema:"Directory path to list"`
}

var listFilesTool = registry.MustNewTool("List files in a directory",
	func(_ context.Context, a listFilesArgs) (*models.ToolCallResult, error) {
		path := a.Path
		if path == "" {
			path = "."
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return models.ErrorResult(fmt.Sprintf("Error listing directory: %v", err)), nil
		}
		if len(entries) == 0 {
			return models.TextResult("Directory is empty"), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Files in %s:", path)
		for _, e := range entries {
			b.WriteString("\n")
			b.WriteString(describeEntry(e))
		}
		return models.TextResult(b.String()), nil
	}, registry.WithDefault("path", "."))

func describeEntry(e fs.DirEntry) string {
	switch {
	case e.Type()&fs.ModeSymlink != 0:
		return fmt.Sprintf("%s (symlink)", e.Name())
	case e.IsDir():
		return fmt.Sprintf("%s (directory)", e.Name())
	}
	info, err := e.Info()
	if err != nil {
		return fmt.Sprintf("%s (file)", e.Name())
	}
	return fmt.Sprintf("%s (file, %s)", e.Name(), humanize.IBytes(uint64(info.Size())))
}

type readFileArgs struct {
	Path    string `json:"path" jsonschema:"Path to the file to read"`
	MaxSize *int64 `json:"max_size,omitempty" jsonschema:"Maximum file size to read in bytes"`
}

func newReadFile(defaultMax int64) (registry.Handler, error) {
	return registry.NewTool("Read the contents of a file",
		func(_ context.Context, a readFileArgs) (*models.ToolCallResult, error) {
			limit := defaultMax
			if a.MaxSize != nil {
				limit = *a.MaxSize
			}
			return readFile(a.Path, limit), nil
		},
		nonNegativeInteger("max_size"),
		registry.WithDefault("max_size", defaultMax))
}

func readFile(path string, limit int64) *models.ToolCallResult {
	info, err := os.Stat(path)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("Error accessing file: %v", err))
	}
	if info.IsDir() {
		return models.ErrorResult(fmt.Sprintf("Error reading file: %s is a directory", path))
	}
	if info.Size() > limit {
		return models.ErrorResult(fmt.Sprintf("File is too large (%d bytes, max: %d bytes)", info.Size(), limit))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("Error reading file: %v", err))
	}
	// The file may have grown since Stat.
	if int64(len(data)) > limit {
		return models.ErrorResult(fmt.Sprintf("File is too large (%d bytes, max: %d bytes)", len(data), limit))
	}
	if !utf8.Valid(data) {
		return models.ErrorResult(fmt.Sprintf("Error reading file: %s is not valid UTF-8 (%s)", path, humanize.IBytes(uint64(len(data)))))
	}
	return models.TextResult(fmt.Sprintf("Contents of %s:\n%s", path, data))
}

// nonNegativeInteger rewrites an optional numeric property as a plain
// non-negative integer.
func nonNegativeInteger(property string) registry.SchemaOption {
	return func(s *jsonschema.Schema) error {
		prop, ok := s.Properties[property]
		if !ok {
			return errors.New("no property " + property)
		}
		zero := 0.0
		prop.Types = nil
		prop.Type = "integer"
		prop.Minimum = &zero
		return nil
	}
}
