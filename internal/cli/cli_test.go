// Package cli_test exercises the mosaicer commands end to end.
package cli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/jmylchreest/mosaicer/internal/cli"
	"github.com/jmylchreest/mosaicer/internal/config"
	"github.com/jmylchreest/mosaicer/internal/index"
)

type workspace struct {
	images  string
	colours string
	labels  string
	db      string
}

// setupWorkspace writes red, green and blue solid images and returns paths
// for the index files, which do not exist yet.
func setupWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		images:  filepath.Join(dir, "images"),
		colours: filepath.Join(dir, "colours.bin"),
		labels:  filepath.Join(dir, "labels.json"),
		db:      filepath.Join(dir, "index.db"),
	}
	if err := os.Mkdir(ws.images, 0o750); err != nil {
		t.Fatal(err)
	}
	for name, c := range map[string]color.NRGBA{
		"blue.png":  {B: 255, A: 255},
		"green.png": {G: 255, A: 255},
		"red.png":   {R: 255, A: 255},
	} {
		if err := imaging.Save(imaging.New(8, 8, c), filepath.Join(ws.images, name)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return ws
}

func (ws workspace) flags() []string {
	return []string{"-i", ws.images, "--colours", ws.colours, "--labels", ws.labels, "-k", "2", "--cluster-index", "0"}
}

// run executes the root command and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	rootCmd := cli.NewRootCmd()
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestIndexCommand(t *testing.T) {
	ws := setupWorkspace(t)

	out, _, err := run(t, "", append([]string{"index", "-p", "2"}, ws.flags()...)...)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if !strings.Contains(out, "Indexed 3 of 3 images in 1 batches") {
		t.Errorf("unexpected output: %q", out)
	}

	for _, p := range []string{ws.colours, ws.labels} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}

func TestIndexCommandJSON(t *testing.T) {
	ws := setupWorkspace(t)
	if err := os.WriteFile(filepath.Join(ws.images, "readme.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, "", append([]string{"index", "--format", "json"}, ws.flags()...)...)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}

	var report struct {
		Total    int `json:"total"`
		Indexed  int `json:"indexed"`
		Failures []struct {
			Path string `json:"path"`
		} `json:"failures"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Total != 4 || report.Indexed != 3 || len(report.Failures) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestMatchBuildsIndexOnCacheMiss(t *testing.T) {
	ws := setupWorkspace(t)

	out, _, err := run(t, "", append([]string{"match", "#ff0000", "0,250,10", "0000f0"}, ws.flags()...)...)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	want := []string{
		filepath.Join(ws.images, "red.png"),
		filepath.Join(ws.images, "green.png"),
		filepath.Join(ws.images, "blue.png"),
	}
	if got := strings.Fields(out); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("match output = %q, want %q", got, want)
	}
	if _, err := os.Stat(ws.labels); err != nil {
		t.Errorf("index was not persisted: %v", err)
	}
}

func TestMatchNoRepeatExhaustsIndex(t *testing.T) {
	ws := setupWorkspace(t)

	args := append([]string{"match", "--no-repeat", "red", "red", "red", "red"}, ws.flags()...)
	_, _, err := run(t, "", args...)
	if err == nil {
		t.Fatal("expected an error for an unparsable colour")
	}

	args = append([]string{"match", "--no-repeat", "ff0000", "ff0000", "ff0000", "ff0000"}, ws.flags()...)
	out, _, err := run(t, "", args...)
	if !errors.Is(err, index.ErrExhaustedIndex) {
		t.Fatalf("error = %v, want ErrExhaustedIndex", err)
	}

	labels := strings.Fields(out)
	if len(labels) != 3 {
		t.Fatalf("got %d labels, want 3: %q", len(labels), labels)
	}
	seen := map[string]bool{}
	for _, l := range labels {
		if seen[l] {
			t.Errorf("label %s returned twice", l)
		}
		seen[l] = true
	}
	if labels[0] != filepath.Join(ws.images, "red.png") {
		t.Errorf("first match = %s, want red.png", labels[0])
	}
}

func TestMatchStdinJSON(t *testing.T) {
	ws := setupWorkspace(t)
	stdin := "# tile colours\n\n#00ff00\n250,0,0\n"

	args := append([]string{"match", "--stdin", "-f", "json", "--store", "sqlite", "--db", ws.db}, ws.flags()...)
	out, _, err := run(t, stdin, args...)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	var results []struct {
		Label    string    `json:"label"`
		Colour   []float64 `json:"colour"`
		Distance float64   `json:"distance"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if filepath.Base(results[0].Label) != "green.png" || results[0].Distance != 0 {
		t.Errorf("first result = %+v", results[0])
	}
	if filepath.Base(results[1].Label) != "red.png" || results[1].Distance != 5 {
		t.Errorf("second result = %+v", results[1])
	}
	if _, err := os.Stat(ws.db); err != nil {
		t.Errorf("sqlite index was not created: %v", err)
	}
}

func TestMatchRequiresQueries(t *testing.T) {
	ws := setupWorkspace(t)
	_, _, err := run(t, "", append([]string{"match"}, ws.flags()...)...)
	if !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestDominantCommand(t *testing.T) {
	ws := setupWorkspace(t)

	out, _, err := run(t, "", "dominant", "-k", "2", "--cluster-index", "0", filepath.Join(ws.images, "green.png"))
	if err != nil {
		t.Fatalf("dominant failed: %v", err)
	}
	if !strings.HasPrefix(out, "#00ff00 ") {
		t.Errorf("dominant output = %q, want #00ff00 first", out)
	}

	out, stderr, err := run(t, "", "dominant", "-f", "json", filepath.Join(ws.images, "blue.png"))
	if err != nil {
		t.Fatalf("dominant failed: %v", err)
	}
	var res struct {
		Hex      string `json:"hex"`
		Fallback bool   `json:"fallback"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Hex != "#0000ff" || !res.Fallback {
		t.Errorf("default settings on a solid image = %+v, want #0000ff with fallback", res)
	}
	if !strings.Contains(stderr, "fallback") {
		t.Errorf("expected a fallback warning on stderr, got %q", stderr)
	}
}

func TestConfigurationErrors(t *testing.T) {
	ws := setupWorkspace(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "zero processes", args: append([]string{"index", "-p", "0"}, ws.flags()...)},
		{name: "cluster index out of range", args: []string{"index", "-i", ws.images, "-k", "2", "--cluster-index", "2"}},
		{name: "empty library", args: []string{"index", "-i", t.TempDir(), "--colours", ws.colours, "--labels", ws.labels}},
		{name: "verbose and quiet", args: append([]string{"index", "-v", "-q"}, ws.flags()...)},
		{name: "bad format", args: append([]string{"index", "-f", "xml"}, ws.flags()...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			if !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("error = %v, want ErrConfiguration", err)
			}
		})
	}

	if _, _, err := run(t, "", "index", "--store", "s3"); err == nil {
		t.Error("unknown store accepted")
	}
}

func TestEnvironmentOverlay(t *testing.T) {
	ws := setupWorkspace(t)
	t.Setenv("MOSAICER_IMAGES", ws.images)
	t.Setenv("MOSAICER_COLOURS", ws.colours)
	t.Setenv("MOSAICER_LABELS", ws.labels)
	t.Setenv("MOSAICER_PROCESSES", "3")

	out, _, err := run(t, "", "index")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if !strings.Contains(out, "Indexed 3 of 3") {
		t.Errorf("unexpected output: %q", out)
	}

	t.Setenv("MOSAICER_PROCESSES", "many")
	if _, _, err := run(t, "", "index"); !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("bad environment value: error = %v, want ErrConfiguration", err)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("MOSAICER_PROCESSES", "many")
	out, _, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "mosaicer") {
		t.Errorf("version output = %q", out)
	}
}
