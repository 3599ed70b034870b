package docs

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Fenced blocks executed by TestCodeBlocks, by info string.
const (
	bashSetup    = "bash setup"    // starts a scenario in a fresh directory
	bashRun      = "bash run"      // output kept for the next console check
	consoleCheck = "console check" // expected output of the last run
	bashCheck    = "bash check"    // must exit 0
)

// listed matches a topic entry of the readme: "* name: summary".
var listed = regexp.MustCompile(`(?m)^\*\s+([^:]+):`)

func TestReadmeListsEveryTopic(t *testing.T) {
	content, err := GetTopic(readme)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, m := range listed.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(m[1])
		if _, err := GetTopic(name); err != nil {
			t.Errorf("readme lists %q: %v", name, err)
		}
		got = append(got, name)
	}
	slices.Sort(got)
	want, err := GetAllTopics()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("readme topics mismatch (-files +readme):\n%s", diff)
	}
}

func TestGetAllTopics(t *testing.T) {
	got, err := GetAllTopics()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"batch", "config", "ledger", "rebalance", "review"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetAllTopics() mismatch (-want +got):\n%s", diff)
	}
	all, err := GetTopic("*")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(all, "# Position ledger") || strings.Contains(all, "`bt` backtests") {
		t.Errorf("GetTopic(*) should hold every topic but the readme")
	}
}

func TestGetTopic_Unknown(t *testing.T) {
	if _, err := GetTopics("ledger", "nope"); err == nil {
		t.Error("GetTopics(ledger, nope) want an error")
	}
}

// TestCodeBlocks runs the shell examples of every topic and of the
// repository README against a freshly built bt.
func TestCodeBlocks(t *testing.T) {
	if testing.Short() {
		t.Skip("builds bt")
	}
	files, err := filepath.Glob("*.md")
	if err != nil {
		t.Fatal(err)
	}
	files = append(files, "../README.md")

	bin := t.TempDir()
	build := exec.Command("go", "build", "-o", filepath.Join(bin, "bt"), "../bt/")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("cannot build bt: %v\n%s", err, out)
	}
	env := append(os.Environ(),
		fmt.Sprintf("PATH=%s%c%s", bin, os.PathListSeparator, os.Getenv("PATH")),
		"BT_TESTING_NOW=2006-01-02 15:04:05", "BT_CURRENCY=USD", "BT_VERBOSE=false")

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			s := scenario{env: env, dir: t.TempDir()}
			for _, b := range codeBlocks(t, file) {
				s.run(t, b)
			}
		})
	}
}

// block is an executable fenced code block.
type block struct {
	kind    string
	content string
	pos     string // file:line
}

// codeBlocks returns the executable blocks of a markdown file, in order.
func codeBlocks(t *testing.T, file string) []block {
	t.Helper()
	src, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	var blocks []block
	root := goldmark.DefaultParser().Parse(text.NewReader(src))
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !entering || !ok || fcb.Info == nil {
			return ast.WalkContinue, nil
		}
		kind := string(fcb.Info.Segment.Value(src))
		switch kind {
		case bashSetup, bashRun, consoleCheck, bashCheck:
		default:
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		for i := 0; i < fcb.Lines().Len(); i++ {
			line := fcb.Lines().At(i)
			b.Write(line.Value(src))
		}
		// goldmark has no line numbers, count the newlines before the info string.
		line := bytes.Count(src[:fcb.Info.Segment.Start], []byte{'\n'}) + 1
		blocks = append(blocks, block{kind: kind, content: b.String(), pos: fmt.Sprintf("%s:%d", file, line)})
		return ast.WalkContinue, nil
	})
	return blocks
}

// scenario is the state shared by the blocks of one markdown file.
type scenario struct {
	env    []string
	dir    string
	output string // of the last bash run
}

func (s *scenario) run(t *testing.T, b block) {
	t.Helper()
	if b.kind == consoleCheck {
		got := strings.ReplaceAll(strings.TrimSpace(s.output), "\t", "        ")
		if want := strings.TrimSpace(b.content); got != want {
			t.Errorf("%s: output mismatch (-want +got):\n%s", b.pos, cmp.Diff(want, got))
		}
		return
	}
	if b.kind == bashSetup {
		s.dir = t.TempDir()
	}
	cmd := exec.Command("bash", "-c", "set -e; "+b.content)
	cmd.Dir, cmd.Env = s.dir, s.env
	out, err := cmd.CombinedOutput()
	if b.kind == bashRun {
		s.output = string(out)
	}
	if err == nil {
		return
	}
	if b.kind == bashCheck {
		t.Errorf("%s: check failed: %v\n%s", b.pos, err, out)
		return
	}
	t.Fatalf("%s: %s failed: %v\n%s", b.pos, b.kind, err, out)
}
