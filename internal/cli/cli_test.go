package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tapesched/pkg/cache"
	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/observability"
	"github.com/matzehuels/tapesched/pkg/pipeline"
	"github.com/matzehuels/tapesched/pkg/report"
	"github.com/matzehuels/tapesched/pkg/schedule"
	"github.com/matzehuels/tapesched/pkg/tape"
)

const datasetJSON = `{
  "name": "case_1",
  "head": {"wrap": 0, "lpos": 0, "status": 0},
  "count": 3,
  "requests": [
    {"id": 10, "wrap": 0, "start_lpos": 100, "end_lpos": 150},
    {"id": 11, "wrap": 0, "start_lpos": 0, "end_lpos": 50},
    {"id": 12, "wrap": 1, "start_lpos": 300, "end_lpos": 350}
  ]
}`

// isolate points config and cache lookups at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Cleanup(observability.Reset)
	return dir
}

func newTestCLI() *CLI {
	return New(io.Discard, log.InfoLevel)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigDefaultPath(t *testing.T) {
	dir := isolate(t)
	c := newTestCLI()

	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig() without a file error: %v", err)
	}

	writeFile(t, filepath.Join(dir, "config", appName, "config.toml"), "[schedule]\nalgorithm = \"tabu\"\n")
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if c.config.Schedule.Algorithm != "tabu" {
		t.Errorf("Algorithm = %q, want tabu", c.config.Schedule.Algorithm)
	}
}

func TestLoadConfigExplicitMissing(t *testing.T) {
	dir := isolate(t)
	c := newTestCLI()
	c.configPath = filepath.Join(dir, "nope.toml")

	if err := c.loadConfig(); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("loadConfig() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestPipelineOptionsPrecedence(t *testing.T) {
	c := newTestCLI()
	c.config.Schedule = pipeline.Options{
		Algorithm:  "tabu",
		Iterations: 100,
		TabuSize:   3,
		Formats:    []string{"svg"},
	}

	cmd := c.scheduleCommand()
	if err := cmd.ParseFlags([]string{"--iterations", "5", "--refresh"}); err != nil {
		t.Fatal(err)
	}
	var opts scheduleOpts
	opts.algorithm, _ = cmd.Flags().GetString("algorithm")
	opts.iterations, _ = cmd.Flags().GetInt("iterations")
	opts.seed, _ = cmd.Flags().GetUint64("seed")
	opts.refresh, _ = cmd.Flags().GetBool("refresh")

	po := c.pipelineOptions(cmd, &opts)
	if po.Algorithm != "tabu" {
		t.Errorf("Algorithm = %q, want config value tabu", po.Algorithm)
	}
	if po.Iterations != 5 {
		t.Errorf("Iterations = %d, want flag value 5", po.Iterations)
	}
	if po.TabuSize != 3 {
		t.Errorf("TabuSize = %d, want config value 3", po.TabuSize)
	}
	if po.Seed != pipeline.DefaultSeed || !po.Refresh {
		t.Errorf("Seed = %d Refresh = %v", po.Seed, po.Refresh)
	}
	if po.Formats != nil {
		t.Errorf("Formats = %v, want none", po.Formats)
	}
}

func runRoot(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScheduleCommand(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "case_1.json")
	out := filepath.Join(dir, "result.json")
	dot := filepath.Join(dir, "path.dot")
	writeFile(t, in, datasetJSON)

	_, err := runRoot(t, newTestCLI(), "schedule", in, "--algorithm", "greedy", "--no-cache", "-o", out, "--dot", dot)
	if err != nil {
		t.Fatalf("schedule error: %v", err)
	}

	res, err := readResult(out)
	if err != nil {
		t.Fatalf("readResult() error: %v", err)
	}
	if got := formatSequence(res.Schedule.IDs); got != "[11, 10, 12]" {
		t.Errorf("sequence = %s, want [11, 10, 12]", got)
	}
	if len(res.Steps) != 3 || res.Dataset != "case_1" {
		t.Errorf("result = %+v", res)
	}

	data, err := os.ReadFile(dot)
	if err != nil {
		t.Fatalf("dot output: %v", err)
	}
	if !strings.Contains(string(data), `"head" -> "req11" [label="0"]`) {
		t.Errorf("dot output:\n%s", data)
	}
}

func TestScheduleCommandFileFlag(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "case_1.json")
	out := filepath.Join(dir, "result.json")
	writeFile(t, in, datasetJSON)

	if _, err := runRoot(t, newTestCLI(), "schedule", "-f", in, "-a", "tabu", "-n", "20", "-o", out); err != nil {
		t.Fatalf("schedule error: %v", err)
	}
	res, err := readResult(out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Schedule.Refiner != "tabu" || res.Schedule.Cost > res.Schedule.InitialCost {
		t.Errorf("schedule = %+v", res.Schedule)
	}

	// Second run is served from the file cache under XDG_CACHE_HOME.
	if _, err := runRoot(t, newTestCLI(), "schedule", "-f", in, "-a", "tabu", "-n", "20", "-o", out); err != nil {
		t.Fatalf("schedule error: %v", err)
	}
	if res, err = readResult(out); err != nil || !res.CacheHit {
		t.Errorf("second run CacheHit = %v, err = %v", res != nil && res.CacheHit, err)
	}
}

func TestScheduleCommandErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := runRoot(t, newTestCLI(), "schedule"); err == nil || !strings.Contains(err.Error(), "dataset path required") {
		t.Errorf("missing path error = %v", err)
	}

	_, err := runRoot(t, newTestCLI(), "schedule", filepath.Join(dir, "missing.txt"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, strings.Replace(datasetJSON, `"count": 3`, `"count": 5`, 1))
	_, err = runRoot(t, newTestCLI(), "schedule", bad, "--no-cache")
	if !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("count mismatch error = %v, want INVALID_INPUT", err)
	}

	in := filepath.Join(dir, "case_1.json")
	writeFile(t, in, datasetJSON)
	_, err = runRoot(t, newTestCLI(), "schedule", in, "--algorithm", "genetic")
	if !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("bad algorithm error = %v, want INVALID_CONFIG", err)
	}
}

func TestCacheDir(t *testing.T) {
	dir := isolate(t)
	c := newTestCLI()

	got, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(dir, "cache", appName); got != want {
		t.Errorf("cacheDir() = %q, want %q", got, want)
	}

	c.config.Cache.Dir = filepath.Join(dir, "custom")
	if got, _ := c.cacheDir(); got != c.config.Cache.Dir {
		t.Errorf("cacheDir() = %q, want config dir", got)
	}
}

func TestNewCache(t *testing.T) {
	isolate(t)
	c := newTestCLI()
	ctx := t.Context()

	store, err := c.newCache(ctx, cacheFlags{noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(cache.NullCache); !ok {
		t.Errorf("--no-cache gave %T, want NullCache", store)
	}

	store, err = c.newCache(ctx, cacheFlags{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*cache.FileCache); !ok {
		t.Errorf("default cache is %T, want *FileCache", store)
	}

	if _, err := c.newCache(ctx, cacheFlags{url: "http://localhost"}); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("bad cache url error = %v, want INVALID_CONFIG", err)
	}

	store, err = c.newCache(ctx, cacheFlags{url: "redis://127.0.0.1:1/0"})
	if err != nil {
		t.Fatalf("unreachable redis should fall back, got error %v", err)
	}
	if _, ok := store.(cache.NullCache); !ok {
		t.Errorf("unreachable redis gave %T, want NullCache", store)
	}
}

func TestCacheClearCommand(t *testing.T) {
	dir := isolate(t)
	fc, err := cache.NewFileCache(filepath.Join(dir, "cache", appName))
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Set(t.Context(), "result:abc", []byte("{}"), 0); err != nil {
		t.Fatal(err)
	}

	if _, err := runRoot(t, newTestCLI(), "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if _, hit, _ := fc.Get(t.Context(), "result:abc"); hit {
		t.Error("cache clear left the entry in place")
	}
}

func TestCompletionCommand(t *testing.T) {
	isolate(t)
	out, err := runRoot(t, newTestCLI(), "completion", "bash")
	if err != nil {
		t.Fatalf("completion error: %v", err)
	}
	if !strings.Contains(out, appName) {
		t.Errorf("bash completion does not mention %s", appName)
	}

	if _, err := runRoot(t, newTestCLI(), "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newTestCLI().RootCommand()
	for _, name := range []string{"schedule", "inspect", "serve", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd == root {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestFormatSequence(t *testing.T) {
	tests := []struct {
		ids  []uint32
		want string
	}{
		{nil, "[]"},
		{[]uint32{7}, "[7]"},
		{[]uint32{3, 1, 2}, "[3, 1, 2]"},
	}
	for _, tt := range tests {
		if got := formatSequence(tt.ids); got != tt.want {
			t.Errorf("formatSequence(%v) = %q, want %q", tt.ids, got, tt.want)
		}
	}

	var buf bytes.Buffer
	writeSequence(&buf, []uint32{4, 2})
	if buf.String() != "output sequence: [4, 2]\n" {
		t.Errorf("writeSequence() = %q", buf.String())
	}
}

func TestImprovement(t *testing.T) {
	if got := improvement(1000, 750); got != "-25.0%" {
		t.Errorf("improvement(1000, 750) = %q", got)
	}
	if got := improvement(1000, 1000); got != "no improvement" {
		t.Errorf("improvement(1000, 1000) = %q", got)
	}
	if got := improvement(0, 0); got != "no improvement" {
		t.Errorf("improvement(0, 0) = %q", got)
	}
}

func sampleResult() *pipeline.Result {
	head := tape.HeadPosition{}
	batch := tape.NewBatch(
		tape.Request{ID: 10, Wrap: 0, StartLPos: 100, EndLPos: 150},
		tape.Request{ID: 11, Wrap: 0, StartLPos: 0, EndLPos: 50},
	)
	seq := schedule.Schedule{1, 0}
	return &pipeline.Result{
		Dataset:  "case_1",
		Head:     head,
		Schedule: schedule.Result{Sequence: seq, IDs: batch.IDs(seq), Cost: 50, InitialCost: 50, Refiner: "greedy"},
		Metrics:  report.Compute(head, batch, seq, tape.DefaultSeek(), report.Options{}),
		Steps:    report.Steps(head, batch, seq, tape.DefaultSeek()),
		CacheHit: true,
	}
}

func TestMetricsTable(t *testing.T) {
	out := metricsTable(sampleResult())
	for _, want := range []string{"requests", "final cost", "belt wear", "motor wear", "greedy", iconCached} {
		if !strings.Contains(out, want) {
			t.Errorf("metricsTable() missing %q in:\n%s", want, out)
		}
	}
}

func TestInspectPlain(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "result.json")
	data, err := json.Marshal(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, string(data))

	if _, err := runRoot(t, newTestCLI(), "inspect", "--plain", path); err != nil {
		t.Fatalf("inspect error: %v", err)
	}
}

func TestReadResultErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := readResult(filepath.Join(dir, "missing.json")); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, "{not json")
	if _, err := readResult(bad); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("bad json error = %v", err)
	}

	noSteps := filepath.Join(dir, "nosteps.json")
	writeFile(t, noSteps, `{"schedule": {"ids": [1, 2]}}`)
	if _, err := readResult(noSteps); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("result without steps error = %v", err)
	}
}
