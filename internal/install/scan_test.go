package install

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdonaldj/esar/internal/logging"
	"github.com/mcdonaldj/esar/internal/mocks"
)

func newTestScanner() *Scanner {
	return NewScanner(mocks.NewMockFileSystem(), "ModInfo.xml", "Config", logging.Discard())
}

func TestScanListsModsInEntryOrder(t *testing.T) {
	modsDir := t.TempDir()
	tree(t, modsDir, map[string]string{
		"Beta/ModInfo.xml":         "b",
		"Alpha/ModInfo.xml":        "a",
		"SharedConfig/ModInfo.xml": "excluded even with marker",
		"Loose/notes.txt":          "no marker",
		"stray-file.txt":           "not a directory",
	})

	mods, err := newTestScanner().Scan(modsDir)
	require.NoError(t, err)
	// os.ReadDir reports entries sorted by name
	assert.Equal(t, []string{"Alpha", "Beta"}, mods)
}

func TestScanIsIdempotent(t *testing.T) {
	modsDir := t.TempDir()
	tree(t, modsDir, map[string]string{
		"ModA/ModInfo.xml": "a",
		"ModB/ModInfo.xml": "b",
	})
	scanner := newTestScanner()

	first := scanner.List(modsDir)
	second := scanner.List(modsDir)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestScanEmptyDirectory(t *testing.T) {
	mods, err := newTestScanner().Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestListDegradesToPlaceholder(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "Mods")

	_, err := newTestScanner().Scan(missing)
	require.Error(t, err)

	assert.Equal(t, []string{ListingUnavailable}, newTestScanner().List(missing))
}
