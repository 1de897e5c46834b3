package install

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcdonaldj/esar/internal/adapters/osfs"
	"github.com/mcdonaldj/esar/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/esar/internal/logging"
	"github.com/mcdonaldj/esar/internal/ports"
)

// testEnv is a scratch layout: a game directory, a staging path that does
// not exist yet, a diary path and a place to put archives.
type testEnv struct {
	root     string
	gameDir  string
	modsDir  string
	staging  string
	diary    string
	archives string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	env := testEnv{
		root:     root,
		gameDir:  filepath.Join(root, "7 Days To Die"),
		staging:  filepath.Join(root, ".zips_temp"),
		diary:    filepath.Join(root, "PANIC_OUTPUT.txt"),
		archives: filepath.Join(root, "downloads"),
	}
	env.modsDir = filepath.Join(env.gameDir, "Mods")
	require.NoError(t, os.MkdirAll(env.gameDir, 0755))
	require.NoError(t, os.MkdirAll(env.archives, 0755))
	return env
}

func (e testEnv) options() Options {
	return Options{
		StagingDir:     e.staging,
		ModsSubdir:     "Mods",
		MarkerFile:     "ModInfo.xml",
		ExcludePattern: "Config",
		DiaryFile:      e.diary,
	}
}

func (e testEnv) service(fs ports.FileSystem, archiver ports.Archiver) *Service {
	return NewService(fs, archiver, e.options(), logging.Discard())
}

func (e testEnv) realService() *Service {
	return e.service(osfs.New(), ziparchiver.New())
}

// zip writes an archive named name holding files and returns its path.
func (e testEnv) zip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(e.archives, name)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for entry, content := range files {
		fw, err := w.Create(entry)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

// tree creates files (relative path -> content) under dir.
func tree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// names lists the entry names of dir, or nil if it does not exist.
func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
