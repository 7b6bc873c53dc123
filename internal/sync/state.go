package sync

// FileStatus is the outcome of synchronizing one target file
type FileStatus int

const (
	FileUnchanged FileStatus = iota
	FileUpdated
	FileNotFound
	FileFailed
)

// FileOutcome records what happened to one target file
type FileOutcome struct {
	File    string     // display path
	Status  FileStatus // what happened to the file
	Applied []string   // labels of the patterns that changed content
	Err     error      // write error for FileFailed
}

// Modified returns true if the file content was (or, in a dry run, would
// be) rewritten
func (o FileOutcome) Modified() bool {
	return o.Status == FileUpdated
}

// Outcome summarizes a sync run in configuration order
type Outcome struct {
	Version string
	DryRun  bool
	Files   []FileOutcome
}

// Updated returns the number of modified files
func (o *Outcome) Updated() int {
	n := 0
	for _, f := range o.Files {
		if f.Modified() {
			n++
		}
	}
	return n
}

// Plan represents the rewrites to perform
type Plan struct {
	Update []FileOp
}

// FileOp represents a single in-place rewrite
type FileOp struct {
	Path    string // absolute path of the target
	File    string // display path
	Content string // new file content
}
