package universe

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing CSV: %v", err)
	}
	return path
}

func TestLoadCSVSymbolColumn(t *testing.T) {
	path := writeCSV(t, "name,symbol\nApple,aapl\nMicrosoft,MSFT\nApple dup,AAPL\n")

	got, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	want := []string{"AAPL", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadCSV = %v, want %v", got, want)
	}
}

func TestLoadCSVFirstColumnFallback(t *testing.T) {
	path := writeCSV(t, "ticker,name\nAAPL,Apple\n,blank\nMSFT,Microsoft\n")

	got, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	want := []string{"AAPL", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadCSV = %v, want %v", got, want)
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("LoadCSV on missing file should fail")
	}
}

func TestMerge(t *testing.T) {
	got := Merge(
		[]string{"AAPL", "msft"},
		[]string{"MSFT", "jpm", ""},
		nil,
		[]string{" aapl "},
	)
	want := []string{"AAPL", "MSFT", "JPM"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}
