package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet manages the files referenced during one generator run. Paths
// reported by the parser oracle are interned here so locations stay compact;
// content is loaded lazily and only when diagnostics need a preview.
type FileSet struct {
	files   []File
	index   map[string]FileID // path -> id
	baseDir string
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// NewFileSetWithBase creates a FileSet with a base directory for relative paths.
func NewFileSetWithBase(baseDir string) *FileSet {
	fs := NewFileSet()
	fs.baseDir = baseDir
	return fs
}

// BaseDir returns the base directory, defaulting to the working directory.
func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return fileSet.baseDir
}

// Intern registers a path without reading it and returns its FileID.
// Repeated calls with the same path return the same ID.
func (fileSet *FileSet) Intern(path string) FileID {
	normalized := normalizePath(path)
	if id, ok := fileSet.index[normalized]; ok {
		return id
	}
	return fileSet.add(File{Path: normalized, Flags: FileInterned})
}

// Add stores a file from normalized bytes, computes LineIdx and Hash, and
// returns its FileID. An interned entry for the same path is upgraded in place.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	normalized := normalizePath(path)
	file := File{
		Path:    normalized,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
	if id, ok := fileSet.index[normalized]; ok {
		file.ID = id
		fileSet.files[id] = file
		return id
	}
	return fileSet.add(file)
}

func (fileSet *FileSet) add(file File) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	file.ID = FileID(lenFiles)
	fileSet.files = append(fileSet.files, file)
	fileSet.index[file.Path] = file.ID
	return file.ID
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual adds a virtual file (test, generated) with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID, or nil if out of range.
func (fileSet *FileSet) Get(id FileID) *File {
	if int(id) >= len(fileSet.files) {
		return nil
	}
	return &fileSet.files[id]
}

// PathOf returns the normalized path for an ID, or "" for unknown IDs.
func (fileSet *FileSet) PathOf(id FileID) string {
	if f := fileSet.Get(id); f != nil {
		return f.Path
	}
	return ""
}

// RelPathOf returns the path relative to BaseDir when possible.
func (fileSet *FileSet) RelPathOf(id FileID) string {
	p := fileSet.PathOf(id)
	if p == "" {
		return p
	}
	if rel, err := filepath.Rel(fileSet.BaseDir(), p); err == nil && !filepath.IsAbs(rel) {
		return filepath.ToSlash(rel)
	}
	return p
}

// Lookup returns the FileID for a path, if present.
func (fileSet *FileSet) Lookup(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Len returns the number of files in the set.
func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// LineContent returns the content of a 1-based line for preview rendering.
// Returns false for interned files (no content) or out-of-range lines.
func (fileSet *FileSet) LineContent(id FileID, line uint32) ([]byte, bool) {
	f := fileSet.Get(id)
	if f == nil || f.Flags&FileInterned != 0 || line == 0 {
		return nil, false
	}
	idx := int(line) - 1
	start := 0
	if idx > 0 {
		if idx-1 >= len(f.LineIdx) {
			return nil, false
		}
		start = int(f.LineIdx[idx-1]) + 1
	}
	end := len(f.Content)
	if idx < len(f.LineIdx) {
		end = int(f.LineIdx[idx])
	}
	if start > end {
		return nil, false
	}
	return f.Content[start:end], true
}
