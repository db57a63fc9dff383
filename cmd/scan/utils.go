package scan

import (
	"github.com/hashicorp/go-hclog"
	"github.com/hhatto/gocloc"

	"github.com/cscan-dev/cscan/internal/reporter"
	"github.com/cscan-dev/cscan/pkg/shared/files"
)

// clocLanguages are the gocloc language names counted for line statistics.
var clocLanguages = []string{"C", "C Header"}

func reportFileName(format reporter.Format) string {
	switch format {
	case reporter.FormatJSON:
		return "cscan-report.json"
	case reporter.FormatSARIF:
		return "cscan-report.sarif"
	default:
		return "cscan-report.txt"
	}
}

// resolveOutputPath turns the output flag into a concrete report file path,
// creating the parent folder when needed.
func resolveOutputPath(outputPath string, format reporter.Format) (string, error) {
	fullPath, folder, err := files.DetermineFileFullPath(outputPath, reportFileName(format))
	if err != nil {
		return "", err
	}
	if err := files.CreateFolderIfNotExists(folder); err != nil {
		return "", err
	}
	return fullPath, nil
}

// countLines totals the code lines of the scanned files with gocloc.
// Counting failures degrade to a zero count instead of failing the scan.
func countLines(logger hclog.Logger, paths []string) int {
	clocOpts := gocloc.NewClocOptions()
	languages := gocloc.NewDefinedLanguages()
	for _, lang := range clocLanguages {
		if _, exists := languages.Langs[lang]; exists {
			clocOpts.IncludeLangs[lang] = struct{}{}
		}
	}

	processor := gocloc.NewProcessor(languages, clocOpts)
	result, err := processor.Analyze(paths)
	if err != nil {
		logger.Warn("line counting failed", "error", err)
		return 0
	}

	sum := 0
	for _, file := range result.Files {
		sum += int(file.Code)
	}
	return sum
}
