package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/reel/internal/scripts"
	"github.com/opencode-ai/reel/internal/timeline"
)

var (
	listTags     []string
	showVars     []string
	validateVars []string
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(validateCmd)

	listCmd.Flags().StringSliceVar(&listTags, "tag", nil, "only list scripts with this tag (repeatable)")
	showCmd.Flags().StringSliceVar(&showVars, "var", nil, "template variable key=value (repeatable)")
	validateCmd.Flags().StringSliceVar(&validateVars, "var", nil, "template variable key=value (repeatable)")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available scripts",
	Long: `List scripts from the project (.reel/scripts), configured script
directories, ~/.config/reel/scripts, /usr/share/reel/scripts and the builtins.
The first script found for a name wins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadScripts()
		if err != nil {
			return err
		}
		items = filterScripts(items, listTags)

		summaries := make([]scriptSummary, 0, len(items))
		for _, script := range items {
			summaries = append(summaries, summarizeScript(script))
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, summaries)
		}

		if len(summaries) == 0 {
			fmt.Fprintln(out, "No scripts found.")
			return nil
		}

		rows := make([][]string, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, []string{
				s.Name,
				fmt.Sprintf("%d", s.Steps),
				formatDuration(s.duration),
				formatTags(s.Tags),
				s.Location,
			})
		}
		return writeTable(out, []string{"NAME", "STEPS", "DURATION", "TAGS", "SOURCE"}, rows)
	},
}

var showCmd = &cobra.Command{
	Use:   "show NAME|FILE",
	Short: "Show a script's compiled timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := resolveScript(args[0])
		if err != nil {
			return err
		}
		vars, err := parseScriptVars(showVars)
		if err != nil {
			return err
		}
		tl, err := scripts.Build(script, vars)
		if err != nil {
			return err
		}

		detail := describeScript(script, tl)
		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, detail)
		}

		fmt.Fprintf(out, "%s  %s\n", detail.Name, colorize(detail.Description, colorGray))
		fmt.Fprintf(out, "Source: %s\n", script.Source)
		fmt.Fprintf(out, "Total:  %s (hold %s)\n", formatDuration(tl.TotalDuration()), detail.Hold)
		if len(script.Variables) > 0 {
			names := make([]string, 0, len(script.Variables))
			for _, v := range script.Variables {
				names = append(names, v.Name)
			}
			fmt.Fprintf(out, "Vars:   %s\n", strings.Join(names, ", "))
		}
		fmt.Fprintln(out)

		for i, step := range tl.Steps() {
			fmt.Fprintf(out, "%2d. %s\n", i+1, formatScriptStep(step, tl.StepStart(i)))
			for _, item := range step.Reveals {
				fmt.Fprintf(out, "      +%s  %s\n", formatOffset(item.Offset), item.Content)
			}
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check script files compile into valid timelines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := parseScriptVars(validateVars)
		if err != nil {
			return err
		}

		results := make([]validationResult, 0, len(args))
		failed := 0
		for _, path := range args {
			progress := startProgress(cmd.ErrOrStderr(), "Validating "+path)
			result := validateScriptFile(path, vars)
			if result.Error != "" {
				failed++
				progress.Fail(errors.New(result.Error))
			} else {
				progress.Done()
			}
			results = append(results, result)
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			if err := WriteOutput(out, results); err != nil {
				return err
			}
		} else {
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := colorize("OK", colorGreen)
				detail := formatDuration(r.duration)
				if r.Error != "" {
					status = colorize("ERR", colorRed)
					detail = r.Error
				}
				rows = append(rows, []string{status, r.File, r.Name, detail})
			}
			if err := writeTable(out, []string{"STATUS", "FILE", "NAME", "DETAIL"}, rows); err != nil {
				return err
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d scripts failed validation", failed, len(results))
		}
		return nil
	},
}

type scriptSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Steps       int      `json:"steps"`
	DurationMS  int64    `json:"duration_ms"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source"`
	Location    string   `json:"location"`

	duration time.Duration
}

type scriptDetail struct {
	scriptSummary
	Hold      string             `json:"hold"`
	Variables []scripts.Variable `json:"variables,omitempty"`
	Timeline  []stepDetail       `json:"timeline"`
}

type stepDetail struct {
	ID         string         `json:"id"`
	StartMS    int64          `json:"start_ms"`
	DurationMS int64          `json:"duration_ms"`
	Reveals    []revealDetail `json:"reveals,omitempty"`
}

type revealDetail struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	OffsetMS int64  `json:"offset_ms"`
}

type validationResult struct {
	File    string `json:"file"`
	Name    string `json:"name,omitempty"`
	Valid   bool   `json:"valid"`
	Invalid bool   `json:"invalid_timeline,omitempty"`
	Error   string `json:"error,omitempty"`

	duration time.Duration
}

func validateScriptFile(path string, vars map[string]string) validationResult {
	result := validationResult{File: path}

	script, err := scripts.LoadScript(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Name = script.Name

	tl, err := scripts.Build(script, vars)
	if err != nil {
		result.Error = err.Error()
		result.Invalid = errors.Is(err, timeline.ErrInvalidTimeline)
		return result
	}

	result.Valid = true
	result.duration = tl.TotalDuration()
	return result
}

func loadScripts() ([]*scripts.Script, error) {
	projectDir, err := os.Getwd()
	if err != nil {
		projectDir = ""
	}

	var extra []string
	if cfg := GetConfig(); cfg != nil {
		extra = cfg.Scripts.Dirs
	}

	items, err := scripts.LoadFromSearchPaths(projectDir, extra...)
	if err != nil {
		return nil, fmt.Errorf("failed to load scripts: %w", err)
	}
	return items, nil
}

// resolveScript loads a script file when arg names one, and otherwise looks
// the name up on the search paths.
func resolveScript(arg string) (*scripts.Script, error) {
	ext := strings.ToLower(filepath.Ext(arg))
	if ext == ".yaml" || ext == ".yml" {
		if _, err := os.Stat(arg); err == nil {
			return scripts.LoadScript(arg)
		}
	}

	name, err := normalizeScriptName(arg)
	if err != nil {
		return nil, err
	}

	items, err := loadScripts()
	if err != nil {
		return nil, err
	}
	script := findScriptByName(items, name)
	if script == nil {
		return nil, &PreflightError{
			Message:  fmt.Sprintf("script %q not found", name),
			Hint:     "Scripts are looked up by name in .reel/scripts, ~/.config/reel/scripts and the builtins",
			NextStep: "reel list",
		}
	}
	return script, nil
}

func filterScripts(items []*scripts.Script, tags []string) []*scripts.Script {
	if len(tags) == 0 {
		return items
	}

	filtered := make([]*scripts.Script, 0, len(items))
	for _, script := range items {
		for _, tag := range tags {
			if script.HasTag(tag) {
				filtered = append(filtered, script)
				break
			}
		}
	}
	return filtered
}

func findScriptByName(items []*scripts.Script, name string) *scripts.Script {
	for _, script := range items {
		if strings.EqualFold(script.Name, name) {
			return script
		}
	}
	return nil
}

func normalizeScriptName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("script name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid script name %q", name)
	}
	return name, nil
}

// parseScriptVars parses key=value pairs. A single flag value may hold
// several comma-separated pairs.
func parseScriptVars(values []string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, value := range values {
		for _, pair := range strings.Split(value, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, val, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("invalid variable %q (empty key)", pair)
			}
			vars[key] = strings.TrimSpace(val)
		}
	}
	return vars, nil
}

func scriptSourceLabel(source, userDir, projectDir string) string {
	switch {
	case source == scripts.BuiltinSource:
		return "builtin"
	case projectDir != "" && strings.HasPrefix(source, projectDir+string(filepath.Separator)):
		return "project"
	case userDir != "" && strings.HasPrefix(source, userDir+string(filepath.Separator)):
		return "user"
	default:
		return "file"
	}
}

func summarizeScript(script *scripts.Script) scriptSummary {
	var userDir, projectDir string
	if home, err := os.UserHomeDir(); err == nil {
		userDir = filepath.Join(home, ".config", "reel", "scripts")
	}
	if wd, err := os.Getwd(); err == nil {
		projectDir = filepath.Join(wd, ".reel", "scripts")
	}

	duration := script.Duration()
	return scriptSummary{
		Name:        script.Name,
		Description: script.Description,
		Steps:       len(script.Steps),
		DurationMS:  duration.Milliseconds(),
		Tags:        script.Tags,
		Source:      script.Source,
		Location:    scriptSourceLabel(script.Source, userDir, projectDir),
		duration:    duration,
	}
}

func describeScript(script *scripts.Script, tl *timeline.Timeline) scriptDetail {
	detail := scriptDetail{
		scriptSummary: summarizeScript(script),
		Hold:          formatDuration(script.HoldDuration(defaultHold())),
		Variables:     script.Variables,
	}
	detail.DurationMS = tl.TotalDuration().Milliseconds()
	detail.duration = tl.TotalDuration()

	for i, step := range tl.Steps() {
		sd := stepDetail{
			ID:         step.ID,
			StartMS:    tl.StepStart(i).Milliseconds(),
			DurationMS: step.Duration.Milliseconds(),
		}
		for _, item := range step.Reveals {
			sd.Reveals = append(sd.Reveals, revealDetail{
				ID:       item.ID,
				Content:  item.Content,
				OffsetMS: item.Offset.Milliseconds(),
			})
		}
		detail.Timeline = append(detail.Timeline, sd)
	}
	return detail
}

func formatScriptStep(step timeline.Step, start time.Duration) string {
	kind := fmt.Sprintf("%d reveals", len(step.Reveals))
	if step.IsMarker() {
		kind = "marker"
	}
	return fmt.Sprintf("%s  @%s for %s (%s)", step.ID, formatOffset(start), formatDuration(step.Duration), kind)
}

func sortedVarNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
