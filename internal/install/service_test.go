package install

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdonaldj/esar/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/esar/internal/logging"
	"github.com/mcdonaldj/esar/internal/mocks"
)

func TestRunInstallsModsFromZips(t *testing.T) {
	env := newTestEnv(t)
	first := env.zip(t, "first.zip", map[string]string{
		"ModA/ModInfo.xml":          "<ModInfo/>",
		"ModA/Config/blocks.xml":    "blocks",
		"SharedConfig/settings.xml": "shared",
	})
	second := env.zip(t, "second.zip", map[string]string{
		"ModB/ModInfo.xml":  "<ModInfo/>",
		"Extras/readme.txt": "not a mod",
	})

	report := env.realService().Run(context.Background(), Request{
		Archives: []string{first, second},
		GameDir:  env.gameDir,
	})

	require.NoError(t, report.Err)
	assert.Equal(t, StateSucceeded, report.State)
	assert.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Archives, 2)
	assert.ElementsMatch(t, []string{"ModA", "ModB"}, report.Moved)
	assert.ElementsMatch(t, []string{"ModA", "ModB", "SharedConfig", "Extras"}, report.Examined)
	assert.Equal(t, []string{"Extras"}, report.Unrecognized)
	assert.Equal(t, []string{"ModA", "ModB"}, report.Installed)

	assert.Equal(t, []string{"ModA", "ModB"}, names(t, env.modsDir))
	assert.True(t, exists(filepath.Join(env.modsDir, "ModA", "Config", "blocks.xml")))
	assert.False(t, exists(env.staging), "staging removed on success")
	assert.False(t, exists(env.diary), "no diary on success")
	assert.Contains(t, report.Summary(), "Installed 2 mods")
}

func TestRunCreatesModsDirectory(t *testing.T) {
	env := newTestEnv(t)
	archive := env.zip(t, "mod.zip", map[string]string{"ModA/ModInfo.xml": "x"})
	require.False(t, exists(env.modsDir))

	report := env.realService().Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})
	require.NoError(t, report.Err)
	assert.True(t, exists(filepath.Join(env.modsDir, "ModA")))
}

func TestRunWithNoModsSucceeds(t *testing.T) {
	env := newTestEnv(t)
	archive := env.zip(t, "textures.zip", map[string]string{"Textures/a.png": "png"})

	report := env.realService().Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})
	require.NoError(t, report.Err)
	assert.Empty(t, report.Moved)
	assert.Empty(t, report.Installed)
	assert.False(t, exists(env.staging))
	assert.Contains(t, report.Summary(), "no mods found")
}

func TestRunFailsWhenStagingExists(t *testing.T) {
	env := newTestEnv(t)
	tree(t, env.staging, map[string]string{"Residue/ModInfo.xml": "from a crashed run"})
	archive := env.zip(t, "mod.zip", map[string]string{"ModA/ModInfo.xml": "x"})

	report := env.realService().Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})

	require.Error(t, report.Err)
	assert.Equal(t, StateFailed, report.State)
	assert.ErrorIs(t, report.Err, ErrStagingExists)
	assert.True(t, IsFatal(report.Err))
	stage, ok := FailedStage(report.Err)
	require.True(t, ok)
	assert.Equal(t, StageExtracting, stage)

	assert.Empty(t, names(t, env.modsDir), "no destination entries created")
	assert.True(t, exists(filepath.Join(env.staging, "Residue")), "earlier residue is left for inspection")

	require.Equal(t, env.diary, report.DiaryPath)
	diary, err := os.ReadFile(env.diary)
	require.NoError(t, err)
	assert.Contains(t, string(diary), report.Err.Error())
	assert.Contains(t, string(diary), report.RunID)
}

func TestRunInputErrorWritesNoDiary(t *testing.T) {
	env := newTestEnv(t)

	report := env.realService().Run(context.Background(), Request{
		Archives: []string{filepath.Join(env.archives, "missing.zip")},
		GameDir:  env.gameDir,
	})

	require.Error(t, report.Err)
	assert.Equal(t, StateFailed, report.State)
	assert.False(t, IsFatal(report.Err))
	stage, _ := FailedStage(report.Err)
	assert.Equal(t, StageLoading, stage)
	assert.False(t, exists(env.diary))
	assert.Empty(t, report.DiaryPath)
	assert.False(t, exists(env.staging), "staging never created")
}

func TestRunNoArchives(t *testing.T) {
	env := newTestEnv(t)

	report := env.realService().Run(context.Background(), Request{GameDir: env.gameDir})
	assert.ErrorIs(t, report.Err, ErrNoArchives)
	assert.Equal(t, StateFailed, report.State)
}

func TestRunExtractionFailureCleansStaging(t *testing.T) {
	env := newTestEnv(t)
	good := env.zip(t, "good.zip", map[string]string{"ModA/ModInfo.xml": "x"})
	corrupt := filepath.Join(env.archives, "corrupt.zip")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip at all"), 0644))
	never := env.zip(t, "never.zip", map[string]string{"ModC/ModInfo.xml": "x"})

	report := env.realService().Run(context.Background(), Request{
		Archives: []string{good, corrupt, never},
		GameDir:  env.gameDir,
	})

	require.Error(t, report.Err)
	assert.True(t, IsFatal(report.Err))
	assert.Contains(t, report.Err.Error(), "corrupt.zip")
	stage, _ := FailedStage(report.Err)
	assert.Equal(t, StageExtracting, stage)

	assert.Empty(t, names(t, env.modsDir), "nothing installed when extraction fails")
	assert.False(t, exists(env.staging), "partial extraction cleaned up")
	assert.True(t, exists(env.diary))
}

func TestRunExtractionStopsAtFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	var archives []string
	for _, name := range []string{"a.zip", "b.zip", "c.zip"} {
		archives = append(archives, env.zip(t, name, map[string]string{"X/file": "x"}))
	}

	archiver := mocks.NewMockArchiver(
		map[string]string{"ModA/ModInfo.xml": "x"},
	)
	archiver.Errors[1] = errors.New("disk full")

	report := env.service(mocks.NewMockFileSystem(), archiver).Run(context.Background(), Request{
		Archives: archives,
		GameDir:  env.gameDir,
	})

	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "disk full")
	assert.Len(t, archiver.ExtractCalls, 2, "third archive never extracted")
	for _, call := range archiver.ExtractCalls {
		assert.Equal(t, env.staging, call.DestDir)
	}
}

func TestRunReconcileFailureKeepsMovedMods(t *testing.T) {
	env := newTestEnv(t)
	tree(t, env.modsDir, map[string]string{"ModB/ModInfo.xml": "installed earlier"})
	archive := env.zip(t, "pack.zip", map[string]string{
		"ModA/ModInfo.xml": "a",
		"ModB/ModInfo.xml": "b",
	})

	report := env.realService().Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})

	require.Error(t, report.Err)
	assert.ErrorIs(t, report.Err, ErrDestinationExists)
	stage, _ := FailedStage(report.Err)
	assert.Equal(t, StageReconciling, stage)

	assert.Equal(t, []string{"ModA"}, report.Moved)
	assert.True(t, exists(filepath.Join(env.modsDir, "ModA")), "already moved mod is not rolled back")
	assert.False(t, exists(env.staging), "cleanup still runs after reconcile failure")
	assert.True(t, exists(env.diary))
	assert.Empty(t, report.Installed, "listing only follows success")
}

func TestRunCleanupFailureDoesNotMaskPrimaryError(t *testing.T) {
	env := newTestEnv(t)
	tree(t, env.modsDir, map[string]string{"ModA/ModInfo.xml": "installed earlier"})
	archive := env.zip(t, "pack.zip", map[string]string{"ModA/ModInfo.xml": "a"})

	fs := mocks.NewMockFileSystem()
	fs.Fail("RemoveAll", env.staging, errors.New("device busy"))

	report := env.service(fs, ziparchiver.New()).Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})

	require.Error(t, report.Err)
	assert.ErrorIs(t, report.Err, ErrDestinationExists, "primary error is the reconcile failure")
	require.Error(t, report.CleanupErr)
	assert.Contains(t, report.CleanupErr.Error(), "device busy")
	assert.True(t, fs.Called("RemoveAll", env.staging))
	assert.Contains(t, report.Summary(), "cleanup also failed")
}

func TestRunCleanupFailureFailsSuccessfulRun(t *testing.T) {
	env := newTestEnv(t)
	archive := env.zip(t, "pack.zip", map[string]string{"ModA/ModInfo.xml": "a"})

	fs := mocks.NewMockFileSystem()
	fs.Fail("RemoveAll", env.staging, errors.New("device busy"))

	report := env.service(fs, ziparchiver.New()).Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})

	assert.Equal(t, StateFailed, report.State)
	stage, ok := FailedStage(report.Err)
	require.True(t, ok)
	assert.Equal(t, StageCleaningUp, stage)
	assert.False(t, IsFatal(report.Err))
	assert.Equal(t, []string{"ModA"}, report.Moved, "mods moved before cleanup stay reported")
	assert.True(t, exists(filepath.Join(env.modsDir, "ModA")))
}

func TestRunDiaryWriteFailureIsReported(t *testing.T) {
	env := newTestEnv(t)
	tree(t, env.staging, map[string]string{"leftover": "x"})
	archive := env.zip(t, "pack.zip", map[string]string{"ModA/ModInfo.xml": "a"})

	fs := mocks.NewMockFileSystem()
	fs.Fail("WriteFile", env.diary, errors.New("read-only"))

	report := env.service(fs, ziparchiver.New()).Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})

	assert.ErrorIs(t, report.Err, ErrStagingExists)
	require.Error(t, report.CleanupErr)
	assert.Contains(t, report.CleanupErr.Error(), "crash diary")
	assert.Empty(t, report.DiaryPath)
}

func TestRunStateSequence(t *testing.T) {
	env := newTestEnv(t)
	archive := env.zip(t, "pack.zip", map[string]string{"ModA/ModInfo.xml": "a"})

	var mu sync.Mutex
	var states []State
	opts := env.options()
	opts.OnState = func(_ string, s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}
	svc := NewService(mocks.NewMockFileSystem(), ziparchiver.New(), opts, logging.Discard())

	report := svc.Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})
	require.NoError(t, report.Err)

	assert.Equal(t, []State{
		StateLoading,
		StateExtracting,
		StateReconciling,
		StateCleaningUp,
		StateSucceeded,
	}, states)
}

func TestRunStateSequenceOnFailure(t *testing.T) {
	env := newTestEnv(t)
	tree(t, env.staging, map[string]string{"leftover": "x"})
	archive := env.zip(t, "pack.zip", map[string]string{"ModA/ModInfo.xml": "a"})

	var states []State
	opts := env.options()
	opts.OnState = func(_ string, s State) { states = append(states, s) }
	svc := NewService(mocks.NewMockFileSystem(), ziparchiver.New(), opts, logging.Discard())

	svc.Run(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})

	require.NotEmpty(t, states)
	assert.Equal(t, StateFailed, states[len(states)-1])
	assert.NotContains(t, states, StateReconciling)
	assert.NotContains(t, states, StateSucceeded)
}

func TestRunCancelledBeforeExtraction(t *testing.T) {
	env := newTestEnv(t)
	archive := env.zip(t, "pack.zip", map[string]string{"ModA/ModInfo.xml": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := env.realService().Run(ctx, Request{Archives: []string{archive}, GameDir: env.gameDir})

	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.False(t, IsFatal(report.Err))
	assert.False(t, exists(env.staging))
	assert.Empty(t, names(t, env.modsDir))
}

func TestStartDeliversOneReport(t *testing.T) {
	env := newTestEnv(t)
	archive := env.zip(t, "pack.zip", map[string]string{"ModA/ModInfo.xml": "a"})

	runID, done := env.realService().Start(context.Background(), Request{Archives: []string{archive}, GameDir: env.gameDir})
	require.NotEmpty(t, runID)

	select {
	case report, ok := <-done:
		require.True(t, ok)
		assert.Equal(t, runID, report.RunID)
		assert.True(t, report.Succeeded())
	case <-time.After(10 * time.Second):
		t.Fatal("install did not finish")
	}

	_, ok := <-done
	assert.False(t, ok, "channel closed after the report")
}

func TestStartRunsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.realService()

	first := env.zip(t, "first.zip", map[string]string{"ModA/ModInfo.xml": "a"})
	id1, done1 := svc.Start(context.Background(), Request{Archives: []string{first}, GameDir: env.gameDir})
	r1 := <-done1

	second := env.zip(t, "second.zip", map[string]string{"ModB/ModInfo.xml": "b"})
	id2, done2 := svc.Start(context.Background(), Request{Archives: []string{second}, GameDir: env.gameDir})
	r2 := <-done2

	assert.NotEqual(t, id1, id2)
	require.NoError(t, r1.Err)
	require.NoError(t, r2.Err)
	assert.Equal(t, []string{"ModA", "ModB"}, r2.Installed)
}

func TestCleanStaging(t *testing.T) {
	env := newTestEnv(t)
	svc := env.realService()

	removed, err := svc.CleanStaging()
	require.NoError(t, err)
	assert.False(t, removed)

	tree(t, env.staging, map[string]string{"Residue/file": "x"})
	removed, err = svc.CleanStaging()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, exists(env.staging))
}

func TestReportSummary(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   string
	}{
		{"none", Report{State: StateSucceeded}, "no mods found"},
		{"one", Report{State: StateSucceeded, Moved: []string{"ModA"}}, "Installed 1 mod: ModA"},
		{"many", Report{State: StateSucceeded, Moved: []string{"ModA", "ModB"}}, "Installed 2 mods: ModA, ModB"},
		{"failed", Report{State: StateFailed, Err: errors.New("boom")}, "Installation failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, strings.Contains(tt.report.Summary(), tt.want), tt.report.Summary())
		})
	}
}

func TestWriteDiary(t *testing.T) {
	env := newTestEnv(t)
	failure := &StageError{Stage: StageExtracting, Fatal: true, Err: ErrStagingExists}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, WriteDiary(mocks.NewMockFileSystem(), env.diary, "run-42", failure, now))

	data, err := os.ReadFile(env.diary)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "run-42")
	assert.Contains(t, text, "2024-05-01T12:00:00Z")
	assert.Contains(t, text, "extracting archives")
	assert.Contains(t, text, "esar clean")
}
