package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ishangarg01/cmd-gen/internal/fileutil"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Loader handles loading risk rules from embedded files and the user
// rules directory.
type Loader struct {
	userDir string
}

// NewLoader creates a new rule loader
func NewLoader(userDir string) *Loader {
	return &Loader{userDir: userDir}
}

// DefaultUserRulesDir returns the default user rules directory
func DefaultUserRulesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cmd-gen/rules.d"
	}
	return filepath.Join(home, ".cmd-gen", "rules.d")
}

// LoadBuiltin loads all embedded builtin risk rules
func (l *Loader) LoadBuiltin() ([]RiskRule, error) {
	var allRules []RiskRule

	err := fs.WalkDir(builtinFS, "builtin", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}

		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rules, err := l.parseRuleSet(data, path, SourceBuiltin)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		allRules = append(allRules, rules...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Trace("Loaded %d builtin risk rules", len(allRules))
	return allRules, nil
}

// LoadUser loads risk rules from the user rules directory. Unreadable or
// malformed files are skipped with a warning so one bad file cannot take
// out the whole registry.
func (l *Loader) LoadUser() ([]RiskRule, error) {
	if l.userDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(l.userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	var allRules []RiskRule
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(l.userDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Failed to read rule file %s: %v", path, err)
			continue
		}

		rules, err := l.parseRuleSet(data, path, SourceUser)
		if err != nil {
			log.Warn("Failed to parse rule file %s: %v", path, err)
			continue
		}

		allRules = append(allRules, rules...)
	}

	log.Trace("Loaded %d user risk rules from %s", len(allRules), l.userDir)
	return allRules, nil
}

// ValidateYAML validates rule YAML content without loading it.
func (l *Loader) ValidateYAML(data []byte) error {
	_, err := l.parseRuleSet(data, "inline", SourceUser)
	return err
}

// AddRuleFile copies a rule file into the user rules directory after
// validating it. Existing files are never overwritten; a timestamp suffix
// is added instead.
func (l *Loader) AddRuleFile(srcPath string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	if err := l.ValidateYAML(data); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	if err := fileutil.SecureMkdirAll(l.userDir); err != nil {
		return "", fmt.Errorf("failed to create rules directory: %w", err)
	}

	filename := filepath.Base(srcPath)
	destPath := filepath.Join(l.userDir, filename)
	if _, err := os.Stat(destPath); err == nil {
		ext := filepath.Ext(filename)
		name := strings.TrimSuffix(filename, ext)
		filename = fmt.Sprintf("%s_%d%s", name, time.Now().Unix(), ext)
		destPath = filepath.Join(l.userDir, filename)
	}

	if err := fileutil.SecureWriteFile(destPath, data); err != nil {
		return "", fmt.Errorf("failed to write rule file: %w", err)
	}

	return destPath, nil
}

// ValidateSafeFilename checks if a filename is safe (no path traversal).
// Returns the sanitized filename or an error.
func ValidateSafeFilename(filename string) (string, error) {
	base := filepath.Base(filename)

	if base == "" || base == "." || base == ".." {
		return "", fmt.Errorf("invalid filename: %s", filename)
	}

	// Reject if original filename differs from base (had path components)
	if base != filename {
		return "", fmt.Errorf("path traversal detected in filename: %s", filename)
	}

	for _, r := range base {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return "", fmt.Errorf("invalid character in filename: %c", r)
		}
	}

	return base, nil
}

// ValidatePathInDirectory checks if a path is safely within the user rules
// directory. Resolves symlinks to prevent symlink-based traversal.
func (l *Loader) ValidatePathInDirectory(filename string) (string, error) {
	safeFilename, err := ValidateSafeFilename(filename)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(l.userDir, safeFilename)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absUserDir, err := filepath.Abs(l.userDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user dir: %w", err)
	}

	// Trailing separator prevents prefix collisions (/rules vs /rules-backup)
	if !strings.HasPrefix(absPath, absUserDir+string(os.PathSeparator)) && absPath != absUserDir {
		return "", fmt.Errorf("path traversal detected: %s is outside %s", absPath, absUserDir)
	}

	if _, err := os.Lstat(fullPath); err == nil {
		realPath, err := filepath.EvalSymlinks(fullPath)
		if err == nil {
			absRealPath, err := filepath.Abs(realPath)
			if err != nil {
				return "", fmt.Errorf("failed to resolve symlink: %w", err)
			}
			if !strings.HasPrefix(absRealPath, absUserDir+string(os.PathSeparator)) && absRealPath != absUserDir {
				return "", fmt.Errorf("symlink points outside rules directory")
			}
		}
	}

	return fullPath, nil
}

// RemoveRuleFile removes a rule file from the user rules directory
func (l *Loader) RemoveRuleFile(filename string) error {
	path, err := l.ValidatePathInDirectory(filename)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// ListUserRuleFiles returns the list of user rule files
func (l *Loader) ListUserRuleFiles() ([]string, error) {
	entries, err := os.ReadDir(l.userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yaml") {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// GetUserDir returns the user rules directory
func (l *Loader) GetUserDir() string {
	return l.userDir
}

// parseRuleSet parses and validates YAML data into risk rules.
func (l *Loader) parseRuleSet(data []byte, path string, source Source) ([]RiskRule, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := ValidateRuleSet(&rs); err != nil {
		return nil, err
	}

	for i := range rs.Rules {
		rs.Rules[i].Source = source
		rs.Rules[i].FilePath = path
	}

	return rs.Rules, nil
}
