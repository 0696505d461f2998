package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bespoke/internal/config"
	"bespoke/internal/pipeline"
	"bespoke/internal/report"
	"bespoke/internal/services"
	"bespoke/internal/sources"
	"bespoke/internal/testsupport"
)

type fakeExecutor struct {
	mu       sync.Mutex
	commands []services.Command
	fail     func(services.Command) error
}

func (f *fakeExecutor) Run(_ context.Context, cmd services.Command, _ func(string)) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if f.fail != nil {
		return f.fail(cmd)
	}
	return nil
}

// byBinary returns recorded calls to binary. Render calls run concurrently,
// so their order is not stable.
func (f *fakeExecutor) byBinary(binary string) []services.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []services.Command
	for _, cmd := range f.commands {
		if cmd.Binary == binary {
			out = append(out, cmd)
		}
	}
	return out
}

var animals = []testsupport.Record{
	{Key: "src:0", Fields: map[string]string{"kind": "cat", "binary_key": "a"}},
	{Key: "src:1", Fields: map[string]string{"kind": "dog", "binary_key": "b"}},
	{Key: "src:2", Fields: map[string]string{"kind": "cat", "binary_key": "c"}},
	{Key: "src:3", Fields: map[string]string{"kind": "bird", "binary_key": "d"}},
	{Key: "src:4", Fields: map[string]string{"kind": "dog", "binary_key": "e"}},
}

func envFor(cfg *config.Config, exec services.Executor, stdout *bytes.Buffer) pipeline.Env {
	return pipeline.Env{
		Executor: exec,
		Stdout:   stdout,
		WorkDir:  testsupport.BaseDir(cfg),
	}
}

func keliSources(cmds []services.Command) map[string]string {
	out := make(map[string]string, len(cmds))
	for _, cmd := range cmds {
		// src-artifact <key> <field> --filename <name> ...
		out[cmd.Args[1]] = cmd.Args[4]
	}
	return out
}

func TestSliceBounds(t *testing.T) {
	end := func(v int) *int { return &v }
	tests := []struct {
		name   string
		n      int
		start  int
		end    *int
		lo, hi int
	}{
		{"whole list", 5, 0, nil, 0, 5},
		{"explicit range", 5, 1, end(3), 1, 3},
		{"negative end", 5, 1, end(-1), 1, 4},
		{"negative start", 5, -2, nil, 3, 5},
		{"start past end", 5, 7, nil, 5, 5},
		{"end before start", 5, 3, end(1), 3, 3},
		{"very negative", 5, -10, end(-20), 0, 0},
		{"empty list", 0, 0, end(4), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := pipeline.SliceBounds(tt.n, tt.start, tt.end)
			if lo != tt.lo || hi != tt.hi {
				t.Fatalf("SliceBounds(%d, %d) = [%d:%d], want [%d:%d]", tt.n, tt.start, lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestDocumentReplacesMatchedBlocks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	base := testsupport.BaseDir(cfg)
	input := filepath.Join(base, "article.md")
	testsupport.WriteText(t, input, "# Pets\n\n```keyling\nkind == \"dog\"\n```\n\ntext\n\n```keyling\nkind == \"dog\"\n```\n\n```keyling\nkind == \"fish\"\n```\n")

	exec := &fakeExecutor{}
	var stdout bytes.Buffer
	rep, err := pipeline.Document(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.DocumentOptions{Input: input})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	want := "# Pets\n\n![](images/bespokedoc_0.jpg \"\")\n\ntext\n\n![](images/bespokedoc_1.jpg \"\")\n\n```keyling\nkind == \"fish\"\n```\n\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	keli := exec.byBinary(cfg.Tools.Keli)
	wantRenders := map[string]string{"src:1": "bespokedoc_0.jpg", "src:4": "bespokedoc_1.jpg"}
	if diff := cmp.Diff(wantRenders, keliSources(keli)); diff != "" {
		t.Fatalf("renders mismatch (-want +got):\n%s", diff)
	}
	imagesDir := filepath.Join(base, "images")
	for _, cmd := range keli {
		if cmd.Dir != imagesDir {
			t.Fatalf("render ran in %q, want %q", cmd.Dir, imagesDir)
		}
	}
	if got := exec.byBinary(cfg.Tools.Convert); len(got) != 0 {
		t.Fatalf("document run should not convert, got %v", got)
	}
	if rep.Tool != pipeline.DocumentTool || rep.RunID == "" {
		t.Fatalf("unexpected report identity: %+v", rep)
	}
	if len(rep.Blocks) != 3 || rep.Blocks[2].Outcome != "unmatched" {
		t.Fatalf("unexpected block outcomes: %+v", rep.Blocks)
	}
}

func TestDocumentWritesOutputFileAndReport(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	base := testsupport.BaseDir(cfg)
	input := filepath.Join(base, "in.md")
	output := filepath.Join(base, "out.md")
	reportPath := filepath.Join(base, "run.yaml")
	testsupport.WriteText(t, input, "intro\n```keyling\nkind == \"bird\"\n```\n")

	var stdout bytes.Buffer
	_, err := pipeline.Document(context.Background(), cfg, envFor(cfg, &fakeExecutor{}, &stdout), pipeline.DocumentOptions{
		Input:      input,
		Output:     output,
		ReportPath: reportPath,
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should be empty when writing a file, got %q", stdout.String())
	}
	if got := testsupport.ReadText(t, output); got != "intro\n![](images/bespokedoc_0.jpg \"\")\n" {
		t.Fatalf("unexpected output %q", got)
	}

	rep, err := report.Read(reportPath)
	if err != nil {
		t.Fatalf("report.Read: %v", err)
	}
	want := []report.Source{{Index: 0, Key: "src:3", Filename: "bespokedoc_0.jpg"}}
	if diff := cmp.Diff(want, rep.Sources); diff != "" {
		t.Fatalf("report sources mismatch (-want +got):\n%s", diff)
	}
	if rep.Failures != 0 || len(rep.Renders) != 1 || !rep.Renders[0].Succeeded {
		t.Fatalf("unexpected renders: %+v", rep.Renders)
	}
}

func TestDocumentContactSheet(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals[:3]...))
	exec := &fakeExecutor{}
	var stdout bytes.Buffer
	if _, err := pipeline.Document(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.DocumentOptions{}); err != nil {
		t.Fatalf("Document: %v", err)
	}
	want := "![](images/bespokedoc_0.jpg \"\")\n![](images/bespokedoc_1.jpg \"\")\n![](images/bespokedoc_2.jpg \"\")\n\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Fatalf("contact sheet mismatch (-want +got):\n%s", diff)
	}
	if got := len(exec.byBinary(cfg.Tools.Keli)); got != 3 {
		t.Fatalf("expected 3 renders, got %d", got)
	}
}

func TestDocumentDryRunStillRenders(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	input := filepath.Join(testsupport.BaseDir(cfg), "in.md")
	text := "```keyling\nkind == \"cat\"\n```\n"
	testsupport.WriteText(t, input, text)

	exec := &fakeExecutor{}
	var stdout bytes.Buffer
	if _, err := pipeline.Document(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.DocumentOptions{Input: input, DryRun: true}); err != nil {
		t.Fatalf("Document: %v", err)
	}
	if stdout.String() != text+"\n" {
		t.Fatalf("dry run changed the document: %q", stdout.String())
	}
	if got := keliSources(exec.byBinary(cfg.Tools.Keli)); got["src:0"] != "bespokedoc_0.jpg" || len(got) != 1 {
		t.Fatalf("unexpected renders %v", got)
	}
}

func TestDocumentMissingInput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	var stdout bytes.Buffer
	_, err := pipeline.Document(context.Background(), cfg, envFor(cfg, &fakeExecutor{}, &stdout), pipeline.DocumentOptions{
		Input: filepath.Join(testsupport.BaseDir(cfg), "missing.md"),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDocumentFromSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	base := testsupport.BaseDir(cfg)
	live, err := sources.Open(cfg)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	snapshot := filepath.Join(base, "sources.db")
	listKey := sources.ListKey(cfg.Store.SourcesTemplate, cfg.Store.Host, cfg.Store.Port)
	if _, err := sources.WriteSnapshot(context.Background(), snapshot, listKey, live); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	_ = live.Close()

	cfg.Store.Backend = config.BackendSnapshot
	cfg.Store.SnapshotPath = snapshot
	input := filepath.Join(base, "in.md")
	testsupport.WriteText(t, input, "```keyling\nkind == \"dog\"\n```")

	exec := &fakeExecutor{}
	var stdout bytes.Buffer
	rep, err := pipeline.Document(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.DocumentOptions{Input: input})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got := stdout.String(); got != "![](images/bespokedoc_0.jpg \"\")\n" {
		t.Fatalf("unexpected document %q", got)
	}
	if len(exec.commands) != 0 || len(rep.Renders) != 0 {
		t.Fatalf("snapshot run should not render, got %v", exec.commands)
	}
	if len(rep.Sources) != 1 || rep.Sources[0].Key != "src:1" {
		t.Fatalf("unexpected report sources %+v", rep.Sources)
	}
}

func TestDocumentNoRender(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	input := filepath.Join(testsupport.BaseDir(cfg), "in.md")
	testsupport.WriteText(t, input, "```keyling\nkind == \"bird\"\n```")

	exec := &fakeExecutor{}
	var stdout bytes.Buffer
	if _, err := pipeline.Document(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.DocumentOptions{
		Input:    input,
		NoRender: true,
	}); err != nil {
		t.Fatalf("Document: %v", err)
	}
	if !strings.Contains(stdout.String(), "bespokedoc_0.jpg") {
		t.Fatalf("document not rewritten: %q", stdout.String())
	}
	if len(exec.commands) != 0 {
		t.Fatalf("expected no tool calls, got %v", exec.commands)
	}
}

func TestAnimateSlicesFramesAndAssembles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	end := -1
	cfg.Animate.FrameStart = 1
	cfg.Animate.FrameEnd = &end
	cfg.Animate.Delay = 50
	cfg.Animate.Resize = "320x_"

	exec := &fakeExecutor{}
	var stdout bytes.Buffer
	rep, err := pipeline.Animate(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.AnimateOptions{Output: "loop"})
	if err != nil {
		t.Fatalf("Animate: %v", err)
	}

	wantFrames := map[string]string{
		"src:1": "animative_0.jpg",
		"src:2": "animative_1.jpg",
		"src:3": "animative_2.jpg",
	}
	if diff := cmp.Diff(wantFrames, keliSources(exec.byBinary(cfg.Tools.Keli))); diff != "" {
		t.Fatalf("frames mismatch (-want +got):\n%s", diff)
	}
	if got := len(exec.byBinary(cfg.Tools.Convert)); got != 3 {
		t.Fatalf("expected 3 conversions, got %d", got)
	}

	output := filepath.Join(testsupport.BaseDir(cfg), "loop.gif")
	gifsicle := exec.byBinary(cfg.Tools.Gifsicle)
	want := []services.Command{
		{
			Binary: cfg.Tools.Gifsicle,
			Args:   []string{"-d50", "animative_0.jpg.gif", "animative_1.jpg.gif", "animative_2.jpg.gif", "-o", output},
			Dir:    cfg.Animate.FramesDir,
		},
		{Binary: cfg.Tools.Gifsicle, Args: []string{"--batch", "--resize", "320x_", output}},
	}
	if diff := cmp.Diff(want, gifsicle); diff != "" {
		t.Fatalf("gifsicle mismatch (-want +got):\n%s", diff)
	}
	if rep.Output != output || len(rep.Sources) != 3 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestAnimateEmptyRange(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals...))
	cfg.Animate.FrameStart = 9
	var stdout bytes.Buffer
	_, err := pipeline.Animate(context.Background(), cfg, envFor(cfg, &fakeExecutor{}, &stdout), pipeline.AnimateOptions{Output: "x.gif"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAnimateRenderFailureContinuesUnlessStrict(t *testing.T) {
	failing := func(cmd services.Command) error {
		if cmd.Binary == "keli" && cmd.Args[1] == "src:2" {
			return services.Wrap(services.ErrExternalTool, "render", "keli", "exit status 1", nil)
		}
		return nil
	}

	for _, strict := range []bool{false, true} {
		cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals[:4]...))
		exec := &fakeExecutor{fail: failing}
		reportPath := filepath.Join(testsupport.BaseDir(cfg), "run.yaml")
		var stdout bytes.Buffer
		_, err := pipeline.Animate(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.AnimateOptions{
			Output:     "out.gif",
			ReportPath: reportPath,
			Strict:     strict,
		})
		if strict {
			if !errors.Is(err, services.ErrExternalTool) {
				t.Fatalf("strict: expected external tool error, got %v", err)
			}
		} else if err != nil {
			t.Fatalf("lenient: unexpected error %v", err)
		}

		if got := len(exec.byBinary("convert")); got != 3 {
			t.Fatalf("expected 3 conversions after one failed render, got %d", got)
		}
		if got := exec.byBinary("gifsicle"); len(got) != 1 || len(got[0].Args) != 7 {
			t.Fatalf("gifsicle should still receive every frame, got %v", got)
		}
		rep, err := report.Read(reportPath)
		if err != nil {
			t.Fatalf("report.Read: %v", err)
		}
		if rep.Failures != 1 {
			t.Fatalf("expected one failure in report, got %d", rep.Failures)
		}
		for _, r := range rep.Renders {
			if r.Source == "src:2" && (r.Succeeded || !strings.Contains(r.Error, "exit status 1")) {
				t.Fatalf("unexpected failed render entry %+v", r)
			}
		}
	}
}

func TestAnimateAssemblyFailureIsReturned(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals[:2]...))
	exec := &fakeExecutor{fail: func(cmd services.Command) error {
		if cmd.Binary == "gifsicle" {
			return services.Wrap(services.ErrExternalTool, "assemble", "gifsicle", "exit status 2", nil)
		}
		return nil
	}}
	reportPath := filepath.Join(testsupport.BaseDir(cfg), "run.yaml")
	var stdout bytes.Buffer
	_, err := pipeline.Animate(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.AnimateOptions{Output: "out", ReportPath: reportPath})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected assembly error, got %v", err)
	}
	if _, err := report.Read(reportPath); err != nil {
		t.Fatalf("report should be written after assembly failure: %v", err)
	}
}

func TestAnimateCanceledRenderAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRedis(animals[:3]...))
	exec := &fakeExecutor{fail: func(cmd services.Command) error {
		if cmd.Binary == "keli" && cmd.Args[1] == "src:1" {
			return context.Canceled
		}
		return nil
	}}
	var stdout bytes.Buffer
	rep, err := pipeline.Animate(context.Background(), cfg, envFor(cfg, exec, &stdout), pipeline.AnimateOptions{Output: "out"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if got := exec.byBinary("gifsicle"); len(got) != 0 {
		t.Fatalf("gifsicle must not run after cancellation, got %v", got)
	}
	if rep == nil || len(rep.Renders) != 3 || rep.Failures != 1 {
		t.Fatalf("report should record every render, got %+v", rep)
	}
}

func TestStoreFailureAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.Port = 1
	var stdout bytes.Buffer
	_, err := pipeline.Animate(context.Background(), cfg, envFor(cfg, &fakeExecutor{}, &stdout), pipeline.AnimateOptions{Output: "out"})
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}
