package ports

// Archiver abstracts archive extraction for testability.
// Production code uses ZipArchiver adapter; tests use MockArchiver.
type Archiver interface {
	// Extract decompresses the full contents of the archive behind src
	// into destDir, preserving the archive's internal directory layout.
	// size is the archive's length in bytes.
	Extract(src File, size int64, destDir string) error
}
