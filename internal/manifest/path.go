package manifest

import "path/filepath"

// SourceDir returns the directory part of path. An empty path yields ".".
func SourceDir(path string) string {
	return filepath.Dir(path)
}

// ResolveFile joins a file_name onto the manifest directory. Absolute names
// are returned unchanged.
func ResolveFile(sourceDir, fileName string) string {
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(sourceDir, fileName)
}

// OutputPath places the base name of name inside folder.
func OutputPath(folder, name string) string {
	return filepath.Join(folder, filepath.Base(name))
}
