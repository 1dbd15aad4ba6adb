package domain

// FileOffset is the per-log-path tracking record from spec.md §3: the
// byte offset to resume at, and a fingerprint of the file's first line.
// The tracker recomputes the fingerprint when the file shrinks; it never
// compares fingerprints, so a same-inode rewrite that does not shrink
// the file is not detected.
type FileOffset struct {
	Path          string
	Inode         uint64
	Offset        int64
	FirstLineHash string
}
