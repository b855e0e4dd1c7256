package history

import (
	"context"

	"github.com/pkg/errors"

	"github.com/taskstate-io/taskstate/internal/identifier"
	"github.com/taskstate-io/taskstate/internal/logging"
	"github.com/taskstate-io/taskstate/pkg/core"
	"github.com/taskstate-io/taskstate/pkg/store"
)

// RepositoryOptions configures a Repository's collaborators.
type RepositoryOptions struct {
	FileTreeSnapshotter  FileTreeSnapshotter
	ValueSnapshotter     ValueSnapshotter
	ImplementationHasher ImplementationHasher
	StringInterner       StringInterner // optional
	Logger               *logging.Logger
}

// Repository is the TaskHistoryRepository of SPEC_FULL.md §1: it hands out a
// History per task path, wired to a shared store.Store and shared
// snapshotting collaborators.
type Repository struct {
	store                *store.Store
	fileSnapshotter      FileTreeSnapshotter
	valueSnapshotter     ValueSnapshotter
	implementationHasher ImplementationHasher
	interner             StringInterner
	logger               *logging.Logger
}

// NewRepository constructs a Repository backed by the given store and
// collaborators.
func NewRepository(backingStore *store.Store, options RepositoryOptions) *Repository {
	return &Repository{
		store:                backingStore,
		fileSnapshotter:      options.FileTreeSnapshotter,
		valueSnapshotter:     options.ValueSnapshotter,
		implementationHasher: options.ImplementationHasher,
		interner:             options.StringInterner,
		logger:               options.Logger,
	}
}

// GetHistory returns a fresh History for taskPath, generating a new build
// invocation identifier for it.
func (r *Repository) GetHistory(taskPath string) (*History, error) {
	buildInvocationID, err := identifier.New(identifier.PrefixBuildInvocation)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate build invocation identifier")
	}
	logger := r.logger
	if logger != nil {
		logger = logger.Sublogger(taskPath)
	}
	return &History{
		taskPath:          taskPath,
		buildInvocationID: buildInvocationID,
		store:             r.store,
		fileSnapshotter:   r.fileSnapshotter,
		valueSnapshotter:  r.valueSnapshotter,
		implementationHasher: r.implementationHasher,
		interner:          r.interner,
		logger:            logger,
	}, nil
}

// History is the per-task façade of component I: it is built, observed,
// mutated, and persisted by the single goroutine executing one task.
type History struct {
	taskPath          string
	buildInvocationID string

	store                *store.Store
	fileSnapshotter      FileTreeSnapshotter
	valueSnapshotter     ValueSnapshotter
	implementationHasher ImplementationHasher
	interner             StringInterner
	logger               *logging.Logger

	loadedPrevious bool
	previous       *core.Record

	current   *core.Record
	taskInputs TaskInputs

	beforeExecutionOutputs map[string]*core.Tree
	overlap                *core.Overlap

	persisted bool
}

// PreviousExecution lazily loads and returns the task's previous execution
// record, performing at most one store read per History instance. A store
// read failure is recovered locally as "no previous record" rather than
// returned to the caller (spec.md §4.I, §7).
func (h *History) PreviousExecution() (*core.Record, bool, error) {
	if h.loadedPrevious {
		return h.previous, h.previous != nil, nil
	}
	h.loadedPrevious = true

	record, ok, err := h.store.Get(h.taskPath)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn(newError(KindStoreReadFailure, h.taskPath, "", "", err))
		}
		h.previous = nil
		return nil, false, nil
	}
	if !ok {
		h.previous = nil
		return nil, false, nil
	}
	h.previous = record
	return record, true, nil
}

// intern routes s through the configured StringInterner, if any.
func (h *History) intern(s string) string {
	if h.interner == nil {
		return s
	}
	return h.interner.Intern(s)
}

// CurrentExecution lazily builds the current execution record from inputs:
// it hashes the task's implementation and action implementations, snapshots
// every declared value property (reusing the previous record's entry
// whenever the value snapshotter reports it unchanged), snapshots every
// declared file-tree input property unconditionally, and snapshots each
// declared output property's before-execution state to detect whether
// another task has written into this task's output area since the previous
// run (component F). The result is cached; a second call returns the same
// record without repeating any of this work.
func (h *History) CurrentExecution(ctx context.Context, inputs TaskInputs) (*core.Record, error) {
	if h.current != nil {
		return h.current, nil
	}

	previous, _, err := h.PreviousExecution()
	if err != nil {
		return nil, err
	}

	implementationSnapshot, err := h.implementationHasher.Hash(inputs.Implementation)
	if err != nil {
		return nil, newError(KindInputSerializationFailure, h.taskPath, "", "", err)
	}

	actionSnapshots := make([]core.ImplementationSnapshot, len(inputs.ActionImplementations))
	for i, action := range inputs.ActionImplementations {
		snapshot, err := h.implementationHasher.Hash(action)
		if err != nil {
			return nil, newError(KindInputSerializationFailure, h.taskPath, "", "", err)
		}
		actionSnapshots[i] = snapshot
	}

	inputProperties := make(map[string]core.ValueSnapshot, len(inputs.ValueProperties))
	for _, property := range inputs.ValueProperties {
		snapshot, err := h.snapshotValueProperty(previous, property)
		if err != nil {
			return nil, newError(KindInputSerializationFailure, h.taskPath, property.Name, "input", err)
		}
		inputProperties[h.intern(property.Name)] = snapshot
	}

	inputFiles := make(map[string]*core.Tree, len(inputs.InputFileProperties))
	for _, property := range inputs.InputFileProperties {
		tree, err := h.fileSnapshotter.Snapshot(ctx, property.Files, property.Root, property.Normalization, property.Strategy)
		if err != nil {
			return nil, newError(KindSnapshottingFailure, h.taskPath, property.Name, "input", err)
		}
		inputFiles[h.intern(property.Name)] = tree
	}

	beforeExecutionOutputs := make(map[string]*core.Tree, len(inputs.OutputFileProperties))
	for _, property := range inputs.OutputFileProperties {
		tree, err := h.fileSnapshotter.Snapshot(ctx, property.Files, property.Root, property.Normalization, property.Strategy)
		if err != nil {
			return nil, newError(KindSnapshottingFailure, h.taskPath, property.Name, "output", err)
		}
		beforeExecutionOutputs[h.intern(property.Name)] = tree
	}

	var afterPrevious map[string]*core.Tree
	if previous != nil {
		afterPrevious = previous.OutputFilesSnapshot
	}
	h.overlap = core.DetectOverlap(beforeExecutionOutputs, afterPrevious)
	h.beforeExecutionOutputs = beforeExecutionOutputs
	h.taskInputs = inputs

	h.current = &core.Record{
		BuildInvocationID:            h.buildInvocationID,
		TaskImplementation:           implementationSnapshot,
		TaskActionImplementations:    actionSnapshots,
		InputProperties:              inputProperties,
		InputFilesSnapshot:           inputFiles,
		CacheableOutputPropertyNames: inputs.CacheableOutputNames,
		DeclaredOutputFilePaths:      inputs.DeclaredOutputFilePaths,
		Successful:                   false,
	}
	return h.current, nil
}

// snapshotValueProperty applies the identity short-circuit of spec.md §8
// invariant 3: when the previous record has an entry for this property, the
// snapshotter is given the chance to return it unchanged.
func (h *History) snapshotValueProperty(previous *core.Record, property ValueProperty) (core.ValueSnapshot, error) {
	if previous != nil {
		if previousSnapshot, ok := previous.InputProperties[property.Name]; ok {
			return h.valueSnapshotter.SnapshotWithPrevious(property.Value, previousSnapshot)
		}
	}
	return h.valueSnapshotter.Snapshot(property.Value)
}

// ChangeReport compares the current record built so far against the
// previous one, categorizing every reason the task is not up to date
// (spec.md §6, "a change-report iterator... reasons like 'input property X
// changed'"). CurrentExecution must have been called first.
func (h *History) ChangeReport() ChangeReport {
	previous, _, _ := h.PreviousExecution()
	return compareForSkip(previous, h.current, h.overlap != nil)
}

// UpToDate reports whether the task may be skipped: its current record
// (built from declared inputs only, before outputs are ever re-snapshotted)
// is compatible for skip with the previous one, per invariant 2 of spec.md
// §8 ("does NOT re-snapshot outputs as part of the skip decision").
func (h *History) UpToDate() bool {
	return h.ChangeReport().UpToDate
}

// UpdateCurrent re-snapshots the task's declared output properties after its
// body has run, applies the output filter (component G) if an overlap was
// detected during CurrentExecution, and records discoveredInputs and
// successful on the current record.
func (h *History) UpdateCurrent(ctx context.Context, discoveredInputs *core.Tree, successful bool) error {
	if h.current == nil {
		return errors.New("current execution must be built before update_current")
	}
	afterExecution := make(map[string]*core.Tree, len(h.taskInputs.OutputFileProperties))
	for _, property := range h.taskInputs.OutputFileProperties {
		tree, err := h.fileSnapshotter.Snapshot(ctx, property.Files, property.Root, property.Normalization, property.Strategy)
		if err != nil {
			return newError(KindSnapshottingFailure, h.taskPath, property.Name, "output", err)
		}
		afterExecution[h.intern(property.Name)] = tree
	}
	return h.applyOutputs(afterExecution, discoveredInputs, successful)
}

// UpdateCurrentWithOutputs is the variant of UpdateCurrent used when outputs
// are supplied externally instead of being re-snapshotted from disk - for
// example, after restoring them from a shared cache.
func (h *History) UpdateCurrentWithOutputs(afterExecution map[string]*core.Tree, discoveredInputs *core.Tree, successful bool) error {
	if h.current == nil {
		return errors.New("current execution must be built before update_current_with_outputs")
	}
	return h.applyOutputs(afterExecution, discoveredInputs, successful)
}

func (h *History) applyOutputs(afterExecution map[string]*core.Tree, discoveredInputs *core.Tree, successful bool) error {
	var afterPrevious map[string]*core.Tree
	if h.previous != nil {
		afterPrevious = h.previous.OutputFilesSnapshot
	}

	filtered := afterExecution
	if h.overlap != nil {
		filtered = core.FilterOutputs(afterPrevious, h.beforeExecutionOutputs, afterExecution)
	}

	h.current.OutputFilesSnapshot = filtered
	h.current.DiscoveredInputsSnapshot = discoveredInputs
	h.current.DetectedOverlappingOutputs = h.overlap
	h.current.Successful = successful
	return nil
}

// Persist writes the current record to the store, superseding whatever was
// previously stored for this task path; the store reclaims any blob
// references the previous record held that the current one no longer
// references (spec.md §4.I, §4.J). Persist must not be called if the build
// was cancelled mid-task (spec.md §5).
func (h *History) Persist() error {
	if h.current == nil {
		return errors.New("current execution must be built before persist")
	}
	if err := h.store.Persist(h.taskPath, h.current); err != nil {
		return newError(KindStoreWriteFailure, h.taskPath, "", "", err)
	}
	h.persisted = true
	return nil
}
