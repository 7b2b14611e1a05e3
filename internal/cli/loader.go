package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/ruler/internal/ruleset"
)

// LoadError represents an error that occurred while loading rulesets.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRulesets loads a ruleset file or every ruleset in a directory.
func LoadRulesets(path string) (*ruleset.Library, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rulesets not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rulesets: %v", err)}
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if !hasRulesetFiles(entries) {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no ruleset files found in %s", path)}
		}
		lib, err := ruleset.LoadDir(path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return lib, nil
	}

	defs, err := ruleset.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	lib, err := ruleset.NewLibrary(defs...)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return lib, nil
}

// isRulesetFile reports whether name has a ruleset file extension.
func isRulesetFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

func hasRulesetFiles(entries []os.DirEntry) bool {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isRulesetFile(entry.Name()) {
			return true
		}
	}
	return false
}

// convertCompileError converts a ruleset load error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *ruleset.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
// Ruleset validation uses the E2xx codes of the ruleset package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No ruleset files found
	ErrCodeLoadFailed  = "E004" // Ruleset load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeDatabase    = "E006" // Database open or query failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadFlag     = "E008" // Malformed flag value
	ErrCodeEvaluation  = "E009" // Evaluation failed
)
