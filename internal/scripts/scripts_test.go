package scripts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/reel/internal/timeline"
)

const ms = time.Millisecond

func writeScript(t *testing.T, dir, file, body string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScript(t *testing.T) {
	path := writeScript(t, t.TempDir(), "intro.yaml", `name: " intro "
description: Intro reel
tags: [demo]
hold: 1500ms
steps:
  - id: searching
    duration: 500ms
  - id: typing
    duration: 1s
    reveals:
      - content: Found it
        offset: 200ms
    type:
      text: "Hello"
`)

	script, err := LoadScript(path)
	require.NoError(t, err)

	require.Equal(t, "intro", script.Name)
	require.Equal(t, path, script.Source)
	require.True(t, script.HasTag("demo"))
	require.Equal(t, "char", script.Steps[1].Type.Unit)
	require.Equal(t, 1500*ms, script.HoldDuration(time.Second))
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", "steps:\n  - {id: a, duration: 1s}\n"},
		{"no steps", "name: x\n"},
		{"missing step id", "name: x\nsteps:\n  - {duration: 1s}\n"},
		{"missing duration", "name: x\nsteps:\n  - {id: a}\n"},
		{"bad duration", "name: x\nsteps:\n  - {id: a, duration: soon}\n"},
		{"bad offset", "name: x\nsteps:\n  - id: a\n    duration: 1s\n    reveals: [{content: c, offset: later}]\n"},
		{"empty reveal", "name: x\nsteps:\n  - id: a\n    duration: 1s\n    reveals: [{offset: 1ms}]\n"},
		{"negative hold", "name: x\nhold: -1s\nsteps:\n  - {id: a, duration: 1s}\n"},
		{"negative jitter", "name: x\njitter: {seed: 1, max: -5ms}\nsteps:\n  - {id: a, duration: 1s}\n"},
		{"duplicate variable", "name: x\nvariables: [{name: v}, {name: v}]\nsteps:\n  - {id: a, duration: 1s}\n"},
		{"unknown unit", "name: x\nsteps:\n  - id: a\n    duration: 1s\n    type: {text: hi, unit: line}\n"},
		{"empty typing", "name: x\nsteps:\n  - id: a\n    duration: 1s\n    type: {text: \" \"}\n"},
		{"malformed yaml", "name: [x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.body))
			require.Error(t, err)
		})
	}
}

func TestBuildRendersVariablesAndTyping(t *testing.T) {
	script := &Script{
		Name: "email",
		Variables: []Variable{
			{Name: "first_name", Default: "there"},
			{Name: "company"},
		},
		Steps: []ScriptStep{
			{
				ID:       "research",
				Duration: "1s",
				Reveals: []ScriptReveal{
					{ID: "company", Content: "{{.company | default \"Acme\"}}", Offset: "500ms"},
				},
			},
			{
				ID:       "writing",
				Duration: "600ms",
				Type:     &Typing{Text: "Hi {{.first_name}}", Unit: "word", Start: "100ms"},
			},
		},
	}

	tl, err := Build(script, map[string]string{"first_name": "Jane"})
	require.NoError(t, err)

	require.Equal(t, 1600*ms, tl.TotalDuration())
	require.Equal(t, []timeline.RevealItem{{ID: "company", Content: "Acme", Offset: 500 * ms}}, tl.Step(0).Reveals)
	require.Equal(t, []timeline.RevealItem{
		{ID: "writing#1", Content: "Hi", Offset: 100 * ms},
		{ID: "writing#2", Content: "Hi Jane", Offset: 600 * ms},
	}, tl.Step(1).Reveals)

	tl, err = Build(script, nil)
	require.NoError(t, err)
	require.Equal(t, "Hi there", tl.Step(1).Reveals[1].Content)
}

func TestBuildRequiredVariable(t *testing.T) {
	script := &Script{
		Name:      "required",
		Variables: []Variable{{Name: "who", Required: true}},
		Steps:     []ScriptStep{{ID: "a", Duration: "1s", Reveals: []ScriptReveal{{Content: "Hi {{.who}}"}}}},
	}

	_, err := Build(script, map[string]string{})
	require.Error(t, err)

	tl, err := Build(script, map[string]string{"who": "Sam"})
	require.NoError(t, err)
	require.Equal(t, "Hi Sam", tl.Step(0).Reveals[0].ID)
}

func TestBuildReportsInvalidTimeline(t *testing.T) {
	script := &Script{
		Name: "late",
		Steps: []ScriptStep{
			{ID: "a", Duration: "100ms", Reveals: []ScriptReveal{{Content: "x", Offset: "150ms"}}},
		},
	}

	_, err := Build(script, nil)
	require.ErrorIs(t, err, timeline.ErrInvalidTimeline)

	script.Steps[0] = ScriptStep{ID: "a", Duration: "-1s"}
	_, err = Build(script, nil)
	require.ErrorIs(t, err, timeline.ErrInvalidTimeline)
}

func TestBuildJitterIsSeeded(t *testing.T) {
	script := func(seed uint64) *Script {
		return &Script{
			Name:   "jittered",
			Jitter: &Jitter{Seed: seed, Max: "400ms"},
			Steps: []ScriptStep{{
				ID:       "list",
				Duration: "2s",
				Reveals: []ScriptReveal{
					{Content: "a", Offset: "0s"},
					{Content: "b", Offset: "400ms"},
					{Content: "c", Offset: "800ms"},
					{Content: "d", Offset: "1200ms"},
					{Content: "e", Offset: "1900ms"},
				},
			}},
		}
	}

	first, err := Build(script(7), nil)
	require.NoError(t, err)
	again, err := Build(script(7), nil)
	require.NoError(t, err)
	other, err := Build(script(8), nil)
	require.NoError(t, err)

	require.Equal(t, first.Steps(), again.Steps())
	require.NotEqual(t, first.Steps(), other.Steps())

	base := map[string]time.Duration{"a": 0, "b": 400 * ms, "c": 800 * ms, "d": 1200 * ms, "e": 1900 * ms}
	for _, item := range first.Step(0).Reveals {
		require.GreaterOrEqual(t, item.Offset, base[item.ID])
		require.Less(t, item.Offset, base[item.ID]+400*ms)
		require.LessOrEqual(t, item.Offset, 2*time.Second)
	}
}

func TestLoadBuiltinScripts(t *testing.T) {
	scripts, err := LoadBuiltinScripts()
	require.NoError(t, err)

	var names []string
	for _, script := range scripts {
		names = append(names, script.Name)
		require.Equal(t, BuiltinSource, script.Source)

		tl, err := Build(script, nil)
		require.NoError(t, err, "builtin %s must compile", script.Name)
		require.Positive(t, tl.TotalDuration())
	}
	require.Equal(t, []string{"agent", "build-list", "data-table", "engage", "personalize", "research", "waterfall"}, names)
}

func findBuiltin(t *testing.T, name string) *Script {
	t.Helper()
	scripts, err := LoadBuiltinScripts()
	require.NoError(t, err)
	for _, script := range scripts {
		if script.Name == name {
			return script
		}
	}
	t.Fatalf("builtin %q not found", name)
	return nil
}

func TestBuiltinAgentPhases(t *testing.T) {
	agent := findBuiltin(t, "agent")
	require.Zero(t, agent.HoldDuration(time.Minute))

	tl, err := Build(agent, map[string]string{"query": "Research Acme Corp's tech stack"})
	require.NoError(t, err)
	require.Equal(t, 14*time.Second, tl.TotalDuration())

	var ids []string
	for _, step := range tl.Steps() {
		ids = append(ids, step.ID)
	}
	require.Equal(t, []string{"idle", "query", "thinking", "searching", "collecting", "complete"}, ids)

	query := tl.Step(tl.IndexOf("query"))
	last := query.Reveals[len(query.Reveals)-1]
	require.Equal(t, "Research Acme Corp's tech stack", last.Content)
	require.Equal(t, 1200*time.Millisecond, last.Offset)

	require.Len(t, tl.Step(tl.IndexOf("thinking")).Reveals, 3)
	require.Len(t, tl.Step(tl.IndexOf("collecting")).Reveals, 5)

	tl, err = Build(agent, nil)
	require.NoError(t, err)
	query = tl.Step(tl.IndexOf("query"))
	require.Equal(t, "Find decision makers at TechCorp", query.Reveals[len(query.Reveals)-1].Content)
}

func TestBuiltinDataTableFillsRows(t *testing.T) {
	table := findBuiltin(t, "data-table")

	tl, err := Build(table, nil)
	require.NoError(t, err)
	require.Equal(t, 9800*time.Millisecond, tl.TotalDuration())

	personalize := tl.Step(tl.IndexOf("personalize"))
	first := personalize.Reveals[0]
	require.Equal(t, "message-vercel#1", first.ID)
	require.Equal(t, "Saw", first.Content)

	var typed timeline.RevealItem
	for _, item := range personalize.Reveals {
		if strings.HasPrefix(item.ID, "message-vercel#") {
			typed = item
		}
	}
	require.Equal(t, "Saw your $150M raise - congrats! Our platform helps...", typed.Content)
	require.Equal(t, time.Second, typed.Offset)
	require.Equal(t, "message-linear", personalize.Reveals[len(personalize.Reveals)-4].ID)

	for _, id := range []string{"row-notion", "domain-notion", "news-notion", "lead-notion"} {
		found := false
		for _, step := range tl.Steps() {
			for _, item := range step.Reveals {
				found = found || item.ID == id
			}
		}
		require.True(t, found, "missing %s", id)
	}
}

func TestBuiltinPersonalizeTypesTheEmail(t *testing.T) {
	scripts, err := LoadBuiltinScripts()
	require.NoError(t, err)

	var personalize *Script
	for _, script := range scripts {
		if script.Name == "personalize" {
			personalize = script
		}
	}
	require.NotNil(t, personalize)

	tl, err := Build(personalize, map[string]string{"first_name": "Priya"})
	require.NoError(t, err)

	writing := tl.Step(tl.IndexOf("writing"))
	last := writing.Reveals[len(writing.Reveals)-1]
	require.Contains(t, last.Content, "Hey Priya - saw you")
	require.Contains(t, last.Content, "$25M Series B, worth a quick chat?")
	require.Equal(t, 6*time.Second, last.Offset)

	examples := tl.Step(tl.IndexOf("examples"))
	require.Equal(t, "Hey {{name}} - saw you...", examples.Reveals[0].Content)
}

func TestLoadScriptsFromDir(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.yml", "name: beta\nsteps:\n  - {id: a, duration: 1s}\n")
	writeScript(t, dir, "a.yaml", "name: alpha\nsteps:\n  - {id: a, duration: 1s}\n")
	writeScript(t, dir, "notes.txt", "not a script")

	scripts, err := LoadScriptsFromDir(dir)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	require.Equal(t, "alpha", scripts[0].Name)
	require.Equal(t, "beta", scripts[1].Name)

	missing, err := LoadScriptsFromDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestLoadFromSearchPathsPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	project := t.TempDir()
	projectScripts := filepath.Join(project, ".reel", "scripts")
	require.NoError(t, os.MkdirAll(projectScripts, 0o755))
	writeScript(t, projectScripts, "research.yaml", "name: research\ndescription: local override\nsteps:\n  - {id: a, duration: 1s}\n")

	extra := t.TempDir()
	writeScript(t, extra, "research.yaml", "name: research\ndescription: extra\nsteps:\n  - {id: a, duration: 1s}\n")
	writeScript(t, extra, "custom.yaml", "name: custom\nsteps:\n  - {id: a, duration: 1s}\n")

	scripts, err := LoadFromSearchPaths(project, extra)
	require.NoError(t, err)

	byName := make(map[string]*Script)
	for _, script := range scripts {
		byName[script.Name] = script
	}
	require.Equal(t, "local override", byName["research"].Description)
	require.Contains(t, byName, "custom")
	require.Equal(t, BuiltinSource, byName["waterfall"].Source)

	paths := SearchPaths(project, extra)
	require.Equal(t, projectScripts, paths[0])
	require.Equal(t, extra, paths[1])
}

func TestScriptDuration(t *testing.T) {
	script := &Script{Steps: []ScriptStep{{ID: "a", Duration: "1s"}, {ID: "b", Duration: "250ms"}}}
	require.Equal(t, 1250*ms, script.Duration())
	require.Equal(t, 2*time.Second, script.HoldDuration(2*time.Second))
}
