package cli

import (
	"github.com/spf13/cobra"

	"github.com/opencode-ai/reel/internal/logging"
	"github.com/opencode-ai/reel/internal/scripts"
	"github.com/opencode-ai/reel/internal/tui"
)

var uiTheme string

func init() {
	rootCmd.AddCommand(uiCmd)
	addPlaybackFlags(uiCmd)
	uiCmd.Flags().StringVar(&uiTheme, "theme", "", "color theme: default, high-contrast (default tui.theme)")
}

var uiCmd = &cobra.Command{
	Use:   "ui NAME|FILE",
	Short: "Watch a script play in the terminal UI",
	Long: `Play a script in an interactive terminal view. The script loops until
you quit unless --loop limits the number of plays.

Keys: space pause/resume, r restart, f finish, s stop, q quit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !IsInteractive() {
			return &PreflightError{
				Message:  "the terminal UI requires an interactive terminal",
				Hint:     "Run without --non-interactive and with a TTY, or play the script headless",
				NextStep: "reel play " + args[0],
			}
		}

		script, err := resolveScript(args[0])
		if err != nil {
			return err
		}
		vars, err := parseScriptVars(playVars)
		if err != nil {
			return err
		}
		tl, err := scripts.Build(script, vars)
		if err != nil {
			return err
		}
		opts, err := resolvePlayOptions(cmd, script)
		if err != nil {
			return err
		}

		tuiConfig := uiConfig(cmd, script, opts)
		tuiConfig.Timeline = tl

		logger := logging.Component("ui")
		logger.Debug().
			Str("script", script.Name).
			Str("theme", tuiConfig.Theme).
			Int("cycles", tuiConfig.Cycles).
			Msg("launching tui")

		return tui.Run(tuiConfig)
	},
}

// uiConfig maps playback options onto a TUI config. Without --loop the UI
// plays until quit.
func uiConfig(cmd *cobra.Command, script *scripts.Script, opts playOptions) tui.Config {
	cfg := tui.Config{
		Title:         script.Name,
		Description:   script.Description,
		Tick:          opts.Tick,
		Hold:          opts.Hold,
		Cycles:        opts.Cycles,
		Speed:         opts.Speed,
		ReducedMotion: opts.ReducedMotion,
		Theme:         "default",
	}
	if !cmd.Flags().Changed("loop") {
		cfg.Cycles = 0
	}

	if appCfg := GetConfig(); appCfg != nil {
		cfg.Theme = appCfg.TUI.Theme
	}
	if cmd.Flags().Changed("theme") {
		cfg.Theme = uiTheme
	}
	return cfg
}
