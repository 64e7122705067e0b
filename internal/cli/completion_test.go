package cli

import (
	"bytes"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteChoices(t *testing.T) {
	complete := completeChoices([]string{"text", "json"})

	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"text", "json"}},
		{"j", []string{"json"}},
		{"text,", []string{"text,text", "text,json"}},
		{"text,js", []string{"text,json"}},
		{"svg", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, directive := complete(nil, nil, tt.input)
			if !slices.Equal(got, tt.want) {
				t.Errorf("complete(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if directive != cobra.ShellCompDirectiveNoFileComp {
				t.Errorf("directive = %v", directive)
			}
		})
	}
}

func TestCompleteDocument(t *testing.T) {
	exts, directive := completeDocument(nil, nil, "")
	if !slices.Equal(exts, []string{"json"}) || directive != cobra.ShellCompDirectiveFilterFileExt {
		t.Errorf("first argument = %v %v, want json files", exts, directive)
	}
	if _, directive := completeDocument(nil, []string{"doc.json"}, ""); directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("second argument directive = %v", directive)
	}
}

func TestRootCommandRegistersCompletions(t *testing.T) {
	root := New(os.Stderr, LogInfo).RootCommand()

	for _, path := range [][]string{{"resolve"}, {"place", "array"}, {"store", "push"}} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatal(err)
		}
		if cmd.ValidArgsFunction == nil {
			t.Errorf("%s has no document completion", strings.Join(path, " "))
		}
	}
	if cmd, _, _ := root.Find([]string{"store", "pull"}); cmd.ValidArgsFunction != nil {
		t.Error("store pull takes an ID, not a document")
	}

	choices := flagChoices()
	if !slices.Equal(choices["dir"], []string{"right", "left", "down", "up"}) {
		t.Errorf("dir choices = %v", choices["dir"])
	}
	if !slices.Contains(choices["type"], "diamond") {
		t.Errorf("type choices = %v", choices["type"])
	}
}

func TestCompletionScript(t *testing.T) {
	root := New(os.Stderr, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", writeEmptyConfig(t), "completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "stepgrid") {
		t.Error("bash script does not mention stepgrid")
	}
}
