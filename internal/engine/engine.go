package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/cscan-dev/cscan/internal/findings"
	"github.com/cscan-dev/cscan/internal/rules"
	"github.com/cscan-dev/cscan/pkg/shared/config"
)

// Engine scans C sources for memory safety defect patterns. An Engine is
// immutable after construction and safe for concurrent use; every file scan
// owns its own preprocessed lines and buffer table, so per-file scans share
// nothing but the compiled rule matchers.
type Engine struct {
	rules      *rules.Ruleset
	matchers   *matchers
	extensions []string
	excludes   []string
	threads    int
	logger     hclog.Logger
}

// New builds an Engine from a resolved ruleset and scan settings. The scan
// configuration is expected to be validated already; threads below one are
// clamped to one.
func New(rs *rules.Ruleset, scanCfg config.Scan, threads int, logger hclog.Logger) *Engine {
	if threads < 1 {
		threads = 1
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{
		rules:      rs,
		matchers:   newMatchers(rs),
		extensions: scanCfg.Extensions,
		excludes:   scanCfg.Exclude,
		threads:    threads,
		logger:     logger,
	}
}

// ScanFile reads one file and returns its findings ordered by line number,
// then by rule priority for equal lines.
func (e *Engine) ScanFile(path string) ([]findings.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	return e.scanSource(path, data), nil
}

// scanSource runs the preprocessor once, builds the buffer table once, and
// feeds both to every enabled detector.
func (e *Engine) scanSource(path string, data []byte) []findings.Finding {
	raw := SplitLines(data)
	pre := Preprocess(raw)
	table := CollectBuffers(pre)

	var results []findings.Finding
	if !e.rules.Disabled(rules.RuleUnsafeCall) {
		results = append(results, e.matchers.detectUnsafeCalls(path, raw, pre)...)
	}
	if !e.rules.Disabled(rules.RuleCopyOverflow) {
		results = append(results, e.matchers.detectCopyOverflows(path, raw, pre, table)...)
	}
	if !e.rules.Disabled(rules.RuleFormatString) {
		results = append(results, e.matchers.detectFormatStrings(path, raw, pre)...)
	}
	if !e.rules.Disabled(rules.RuleLargeBuffer) {
		results = append(results, e.matchers.detectLargeBuffers(path, raw, pre)...)
	}
	if !e.rules.Disabled(rules.RuleAlloca) {
		results = append(results, e.matchers.detectAlloca(path, raw, pre)...)
	}

	sortFindings(results)
	return results
}

// sortFindings orders findings by line number ascending, then by rule
// priority for equal lines. The sort is stable so detector output order
// never leaks into the result.
func sortFindings(list []findings.Finding) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Line != list[j].Line {
			return list[i].Line < list[j].Line
		}
		return rules.Priority(list[i].RuleID) < rules.Priority(list[j].RuleID)
	})
}

// ListFiles enumerates candidate files under root in lexical path order.
// A root that is itself a file is returned as the single candidate when its
// extension matches. Unreadable subtrees are logged and skipped.
func (e *Engine) ListFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access scan root %q: %w", root, err)
	}

	if !info.IsDir() {
		if e.matchesExtension(root) && !e.excluded(filepath.Base(root)) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !e.matchesExtension(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if e.excluded(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", root, err)
	}
	return files, nil
}

func (e *Engine) matchesExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, want := range e.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// excluded reports whether a root-relative path matches any exclude
// pattern. Patterns without a path separator are matched against the base
// name, so "*.gen.c" excludes generated files at any depth.
func (e *Engine) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := rel
	if idx := strings.LastIndexByte(rel, '/'); idx >= 0 {
		base = rel[idx+1:]
	}
	for _, pattern := range e.excludes {
		target := rel
		if !strings.Contains(pattern, "/") {
			target = base
		}
		if ok, err := doublestar.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

// ScanFiles scans the given files with a bounded number of goroutines and
// returns the merged findings plus the count of files that could not be
// read. Results are assembled by file index, so the merged order matches a
// sequential scan of the same list.
func (e *Engine) ScanFiles(files []string) ([]findings.Finding, int) {
	perFile := make([][]findings.Finding, len(files))
	errs := make([]error, len(files))

	e.forEveryFile(files, func(i int, path string) {
		list, err := e.ScanFile(path)
		if err != nil {
			errs[i] = err
			return
		}
		perFile[i] = list
	})

	var merged []findings.Finding
	failed := 0
	for i := range files {
		if errs[i] != nil {
			e.logger.Warn("skipping unreadable file", "path", files[i], "error", errs[i])
			failed++
			continue
		}
		merged = append(merged, perFile[i]...)
	}
	return merged, failed
}

// ScanPath discovers candidate files under root and scans them. It returns
// the merged findings, the count of unreadable files, and an error only
// when the root itself cannot be accessed.
func (e *Engine) ScanPath(root string) ([]findings.Finding, int, error) {
	files, err := e.ListFiles(root)
	if err != nil {
		return nil, 0, err
	}
	e.logger.Debug("discovered candidate files", "root", root, "count", len(files))

	merged, failed := e.ScanFiles(files)
	return merged, failed, nil
}

func (e *Engine) forEveryFile(files []string, f func(i int, path string)) {
	guard := make(chan struct{}, e.threads)
	var wg sync.WaitGroup
	for i, path := range files {
		guard <- struct{}{} // would block if guard channel is already filled
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			f(i, path)
			<-guard
		}(i, path)
	}
	wg.Wait()
}
