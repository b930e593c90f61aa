package sqlgraph

// DefaultSkipDirs names directories the SQL walk never descends into:
// build output, snapshot/tool scratch space, and VCS metadata.
func DefaultSkipDirs() map[string]bool {
	return map[string]bool{
		"Snapshots": true,
		"Tools":     true,
		"bin":       true,
		"obj":       true,
		".git":      true,
		".svn":      true,
		".hg":       true,
	}
}
