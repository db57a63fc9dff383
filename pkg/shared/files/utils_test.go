package files

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetermineFileFullPath(t *testing.T) {
	type testCase struct {
		name         string
		inputPath    string
		nameTemplate string
		expectFile   string
		expectFolder string
		setup        func(t *testing.T) (inputPath, expectFile, expectFolder string)
	}

	tmpDir := t.TempDir()

	tests := []testCase{
		{
			name:         "Directory path with report name template",
			inputPath:    tmpDir,
			nameTemplate: "cscan-report.json",
			expectFile:   filepath.Join(tmpDir, "cscan-report.json"),
			expectFolder: tmpDir,
		},
		{
			name:         "Existing file path with extension",
			inputPath:    filepath.Join(tmpDir, "report.sarif"),
			nameTemplate: "ignored.json",
			expectFile:   filepath.Join(tmpDir, "report.sarif"),
			expectFolder: tmpDir,
			setup: func(t *testing.T) (string, string, string) {
				f := filepath.Join(tmpDir, "report.sarif")
				_ = os.WriteFile(f, []byte("{}"), 0644)
				return f, f, tmpDir
			},
		},
		{
			name:         "Path with no extension, treat as folder",
			inputPath:    filepath.Join(tmpDir, "results"),
			nameTemplate: "cscan-report.txt",
			expectFile:   filepath.Join(tmpDir, "results", "cscan-report.txt"),
			expectFolder: filepath.Join(tmpDir, "results"),
		},
		{
			name:         "Non-existent file with extension",
			inputPath:    filepath.Join(tmpDir, "missing.json"),
			nameTemplate: "ignored.txt",
			expectFile:   filepath.Join(tmpDir, "missing.json"),
			expectFolder: tmpDir,
		},
		{
			name:         "Non-existent folder",
			inputPath:    filepath.Join(tmpDir, "missing_folder"),
			nameTemplate: "cscan-report.sarif",
			expectFile:   filepath.Join(tmpDir, "missing_folder", "cscan-report.sarif"),
			expectFolder: filepath.Join(tmpDir, "missing_folder"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actualPath := tt.inputPath
			expectFile := tt.expectFile
			expectFolder := tt.expectFolder

			if tt.setup != nil {
				actualPath, expectFile, expectFolder = tt.setup(t)
			}

			filePath, folderPath, err := DetermineFileFullPath(actualPath, tt.nameTemplate)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if filePath != expectFile {
				t.Errorf("Expected file path %s, got %s", expectFile, filePath)
			}
			if folderPath != expectFolder {
				t.Errorf("Expected folder path %s, got %s", expectFolder, folderPath)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tmpDir := t.TempDir()

	valid := filepath.Join(tmpDir, "main.c")
	if err := os.WriteFile(valid, []byte("int main(void) { return 0; }\n"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "Regular file", path: valid, wantErr: false},
		{name: "Directory", path: tmpDir, wantErr: true},
		{name: "Missing file", path: filepath.Join(tmpDir, "nope.c"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr = %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestWriteReportFile(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(tmpDir, "cscan-report.json")

	if err := WriteReportFile(out, []byte(`{"findings":[]}`)); err != nil {
		t.Fatalf("WriteReportFile: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"findings":[]}` {
		t.Errorf("unexpected content: %s", data)
	}

	// Overwrites, never appends.
	if err := WriteReportFile(out, []byte("{}")); err != nil {
		t.Fatalf("WriteReportFile overwrite: %v", err)
	}
	data, _ = os.ReadFile(out)
	if string(data) != "{}" {
		t.Errorf("expected truncated rewrite, got: %s", data)
	}
}
