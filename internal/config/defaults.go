package config

// defaultExcludePatterns returns the built-in `scan.exclude_patterns`,
// covering the VCS/package-manager/build-output directories a C/C++ or Go
// project accumulates. Kept much shorter than a general source-indexer's
// list (the teacher's own default exclude set spans dozens of unrelated
// ecosystems — game engines, mobile app bundlers, media formats — none of
// which a C/C++/Go log-coverage scan will ever encounter).
func defaultExcludePatterns() []string {
	return []string{
		"**/.git/**",
		"**/.svn/**",
		"**/.hg/**",

		"**/node_modules/**",
		"**/vendor/**",

		"**/build/**",
		"**/cmake-build-*/**",
		"**/CMakeFiles/**",
		"**/out/**",
		"**/dist/**",
		"**/bin/**",
		"**/obj/**",

		"**/*.o",
		"**/*.a",
		"**/*.so",
		"**/*.so.*",
		"**/*.dylib",
		"**/*.dll",
		"**/*.exe",

		"**/.cache/**",
		"**/.vscode/**",
		"**/.idea/**",

		"**/*_test.go", // excluded from the *analyzed* tree by default; re-add explicitly to audit test coverage too
	}
}
