package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskstate-io/taskstate/internal/config"
	"github.com/taskstate-io/taskstate/internal/logging"
	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/history"
	"github.com/taskstate-io/taskstate/pkg/snapshot"
	"github.com/taskstate-io/taskstate/pkg/store"
)

// runConfiguration holds runCommand's flag values.
var runConfiguration struct {
	task       string
	storeDir   string
	root       string
	inputs     []string
	outputs    []string
	values     []string
	configPath string
	verbose    bool
}

// shellTaskImplementation identifies every task this demo driver builds: a
// single, generic "run a shell command" task type.
type shellTaskImplementation struct{}

// actionImplementation represents one step of a task's ordered action list:
// a shell command, identified (for change detection) by its argv.
type actionImplementation struct {
	Argv []string
}

var runCommand = &cobra.Command{
	Use:   "run -- <command> [arguments...]",
	Short: "Run a task, skipping the command if its inputs are unchanged",
	Args:  cobra.MinimumNArgs(0),
	RunE:  runMain,
}

func init() {
	flags := runCommand.Flags()
	flags.StringVar(&runConfiguration.task, "task", "//demo:task", "task path identifying this task's history")
	flags.StringVar(&runConfiguration.storeDir, "store", filepath.Join(".", ".taskstate-demo"), "directory backing the persistent store")
	flags.StringVar(&runConfiguration.root, "root", ".", "root directory input/output paths are normalized against")
	flags.StringSliceVar(&runConfiguration.inputs, "in", nil, "declared input file paths (repeatable, or comma-separated)")
	flags.StringSliceVar(&runConfiguration.outputs, "out", nil, "declared output file paths (repeatable, or comma-separated)")
	flags.StringSliceVar(&runConfiguration.values, "value", nil, "declared value properties as name=value pairs (repeatable)")
	flags.StringVar(&runConfiguration.configPath, "config", "", "path to a TOML configuration file (optional)")
	flags.BoolVarP(&runConfiguration.verbose, "verbose", "v", false, "log history and store activity to standard error")
}

func runMain(command *cobra.Command, arguments []string) error {
	logLevel := logging.LevelWarn
	if runConfiguration.verbose {
		logLevel = logging.LevelDebug
	}
	logger := logging.NewRoot(logLevel)

	root, err := filepath.Abs(runConfiguration.root)
	if err != nil {
		return errors.Wrap(err, "unable to resolve root directory")
	}

	cfg, err := config.Load(runConfiguration.configPath, runConfiguration.storeDir)
	if err != nil {
		return errors.Wrap(err, "unable to load configuration")
	}

	backingStore, err := store.Open(cfg.StorePath, store.Options{
		Algorithm:          cfg.HashAlgorithm,
		LockTimeout:        cfg.LockTimeout(),
		RecordCacheEntries: cfg.RecordCacheEntries,
		BlobCacheEntries:   cfg.BlobCacheEntries,
		Logger:             logger.Sublogger("store"),
	})
	if err != nil {
		return errors.Wrap(err, "unable to open store")
	}
	defer backingStore.Close()

	repository := history.NewRepository(backingStore, history.RepositoryOptions{
		FileTreeSnapshotter:  snapshot.NewFileTreeSnapshotter(cfg.HashAlgorithm),
		ValueSnapshotter:     snapshot.NewValueSnapshotter(cfg.HashAlgorithm),
		ImplementationHasher: snapshot.NewImplementationHasher(cfg.HashAlgorithm),
		StringInterner:       snapshot.NewStringInterner(),
		Logger:               logger.Sublogger("history"),
	})

	taskHistory, err := repository.GetHistory(runConfiguration.task)
	if err != nil {
		return errors.Wrap(err, "unable to start task history")
	}

	inputs, err := buildTaskInputs(root, arguments)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := taskHistory.CurrentExecution(ctx, inputs); err != nil {
		return errors.Wrap(err, "unable to build current execution record")
	}

	report := taskHistory.ChangeReport()
	if report.UpToDate {
		fmt.Printf("%s: up to date, skipping\n", runConfiguration.task)
		return nil
	}

	fmt.Printf("%s: re-executing:\n", runConfiguration.task)
	for _, change := range report.Changes {
		fmt.Printf("  - %s\n", change)
	}

	successful := true
	if len(arguments) > 0 {
		execution := exec.CommandContext(ctx, arguments[0], arguments[1:]...)
		execution.Dir = root
		execution.Stdout = os.Stdout
		execution.Stderr = os.Stderr
		if err := execution.Run(); err != nil {
			successful = false
			fmt.Fprintln(os.Stderr, "command failed:", err)
		}
	}

	if err := taskHistory.UpdateCurrent(ctx, nil, successful); err != nil {
		return errors.Wrap(err, "unable to update current execution record")
	}
	if err := taskHistory.Persist(); err != nil {
		return errors.Wrap(err, "unable to persist execution record")
	}

	if !successful {
		return errors.New("task command failed")
	}
	return nil
}

// buildTaskInputs assembles a history.TaskInputs from the run command's
// flags: the executed command's argv is the sole action implementation, and
// --in/--out name the declared file properties, both snapshotted relative to
// root.
func buildTaskInputs(root string, arguments []string) (history.TaskInputs, error) {
	values := make([]history.ValueProperty, 0, len(runConfiguration.values))
	for _, pair := range runConfiguration.values {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return history.TaskInputs{}, fmt.Errorf("invalid --value %q, expected name=value", pair)
		}
		values = append(values, history.ValueProperty{Name: name, Value: value})
	}

	inputProperties := []history.FileProperty{{
		Name:          "in",
		Files:         resolvePaths(root, runConfiguration.inputs),
		Root:          root,
		Normalization: core.PathNormalizationRelative,
		Strategy:      core.CompareUnordered,
	}}
	outputProperties := []history.FileProperty{{
		Name:          "out",
		Files:         resolvePaths(root, runConfiguration.outputs),
		Root:          root,
		Normalization: core.PathNormalizationRelative,
		Strategy:      core.CompareUnordered,
	}}

	var actions []any
	if len(arguments) > 0 {
		actions = append(actions, actionImplementation{Argv: arguments})
	}

	return history.TaskInputs{
		Implementation:           shellTaskImplementation{},
		ActionImplementations:    actions,
		ValueProperties:          values,
		InputFileProperties:      inputProperties,
		CacheableOutputNames:     []string{"out"},
		OutputFileProperties:     outputProperties,
		DeclaredOutputFilePaths:  resolvePaths(root, runConfiguration.outputs),
	}, nil
}

func resolvePaths(root string, paths []string) []string {
	resolved := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			resolved[i] = p
		} else {
			resolved[i] = filepath.Join(root, p)
		}
	}
	return resolved
}
