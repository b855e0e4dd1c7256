package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskstate-io/taskstate/internal/config"
	"github.com/taskstate-io/taskstate/internal/logging"
	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/store"
)

var inspectConfiguration struct {
	task       string
	storeDir   string
	configPath string
}

var inspectCommand = &cobra.Command{
	Use:   "inspect",
	Short: "Print the previous execution record stored for a task",
	Args:  cobra.NoArgs,
	RunE:  inspectMain,
}

func init() {
	flags := inspectCommand.Flags()
	flags.StringVar(&inspectConfiguration.task, "task", "//demo:task", "task path to inspect")
	flags.StringVar(&inspectConfiguration.storeDir, "store", filepath.Join(".", ".taskstate-demo"), "directory backing the persistent store")
	flags.StringVar(&inspectConfiguration.configPath, "config", "", "path to a TOML configuration file (optional)")
}

func inspectMain(command *cobra.Command, arguments []string) error {
	cfg, err := config.Load(inspectConfiguration.configPath, inspectConfiguration.storeDir)
	if err != nil {
		return errors.Wrap(err, "unable to load configuration")
	}

	backingStore, err := store.Open(cfg.StorePath, store.Options{
		Algorithm:          cfg.HashAlgorithm,
		LockTimeout:        cfg.LockTimeout(),
		RecordCacheEntries: cfg.RecordCacheEntries,
		BlobCacheEntries:   cfg.BlobCacheEntries,
		Logger:             logging.NewRoot(logging.LevelWarn),
	})
	if err != nil {
		return errors.Wrap(err, "unable to open store")
	}
	defer backingStore.Close()

	record, ok, err := backingStore.Get(inspectConfiguration.task)
	if err != nil {
		return errors.Wrap(err, "unable to read record")
	}
	if !ok {
		fmt.Printf("%s: no previous execution record\n", inspectConfiguration.task)
		return nil
	}

	fmt.Printf("%s\n", inspectConfiguration.task)
	fmt.Printf("  build invocation: %s\n", record.BuildInvocationID)
	fmt.Printf("  implementation:   %s\n", record.TaskImplementation.TypeName)
	fmt.Printf("  actions:          %d\n", len(record.TaskActionImplementations))
	fmt.Printf("  successful:       %t\n", record.Successful)
	fmt.Printf("  input properties:\n")
	for name, value := range record.InputProperties {
		fmt.Printf("    %s: %s (%s)\n", name, value.Representation, humanize.Bytes(uint64(len(value.Digest))))
	}
	fmt.Printf("  input files:\n")
	printTreeSummary(record.InputFilesSnapshot)
	fmt.Printf("  output files:\n")
	printTreeSummary(record.OutputFilesSnapshot)
	if record.DetectedOverlappingOutputs != nil {
		fmt.Printf("  overlap detected: property %q at %s\n", record.DetectedOverlappingOutputs.Property, record.DetectedOverlappingOutputs.AbsolutePath)
	}
	return nil
}

func printTreeSummary(trees map[string]*core.Tree) {
	for name, tree := range trees {
		var totalBytes uint64
		for _, entry := range tree.Snapshots() {
			totalBytes += uint64(len(entry.Content.Hash))
		}
		fmt.Printf("    %s: %d entries, %s of digests\n", name, tree.Len(), humanize.Bytes(totalBytes))
	}
}
