// Package cli implements vibectl, the terminal client for UT Vibe.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"utvibe/internal/client"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	keyAPIURL  = "api_url"
	keyToken   = "token"
	keyEmail   = "email"
	keyTimeout = "timeout"
	keyOutput  = "output"
)

// App holds what every command shares. Commands are built from it so tests
// can swap the config file and output writer.
type App struct {
	cfg     *viper.Viper
	cfgFile string
	out     io.Writer
	logger  *log.Logger
	verbose bool
}

func NewApp(out io.Writer) *App {
	return &App{cfg: viper.New(), out: out}
}

// NewRootCommand builds the vibectl command tree.
func (a *App) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "vibectl",
		Short:         "UT Vibe from the terminal",
		Long:          "vibectl reads the UT Vibe campus feed and likes, dislikes or bookmarks posts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ~/.vibectl.yml)")
	root.PersistentFlags().String("api-url", "http://localhost:8375", "UT Vibe API base URL")
	root.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log HTTP traffic")
	_ = a.cfg.BindPFlag(keyAPIURL, root.PersistentFlags().Lookup("api-url"))
	_ = a.cfg.BindPFlag(keyOutput, root.PersistentFlags().Lookup("output"))

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.feedCmd(),
		a.reactionCmd("like", "Like or unlike a post"),
		a.reactionCmd("dislike", "Dislike or undislike a post"),
		a.reactionCmd("bookmark", "Bookmark or unbookmark a post"),
		a.bookmarksCmd(),
		a.mineCmd(),
		a.watchCmd(),
	)
	return root
}

func (a *App) init(cmd *cobra.Command) error {
	a.cfg.SetEnvPrefix("VIBECTL")
	a.cfg.AutomaticEnv()
	a.cfg.SetDefault(keyTimeout, 15*time.Second)

	if a.cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		a.cfgFile = filepath.Join(home, ".vibectl.yml")
	}
	a.cfg.SetConfigFile(a.cfgFile)
	a.cfg.SetConfigType("yaml")
	if err := a.cfg.ReadInConfig(); err != nil && !isMissingFile(a.cfgFile) {
		return fmt.Errorf("read config: %w", err)
	}

	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "vibectl",
	})

	if _, err := parseFormat(a.cfg.GetString(keyOutput)); err != nil {
		return err
	}
	return nil
}

func isMissingFile(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

func (a *App) client() *client.Client {
	return client.New(client.Config{
		BaseURL: a.cfg.GetString(keyAPIURL),
		Token:   a.cfg.GetString(keyToken),
		Timeout: a.cfg.GetDuration(keyTimeout),
		Logger:  a.logger,
	})
}

// saveSession persists the token so later commands are signed in.
func (a *App) saveSession(email, token string) error {
	a.cfg.Set(keyEmail, email)
	a.cfg.Set(keyToken, token)
	if err := os.MkdirAll(filepath.Dir(a.cfgFile), 0o700); err != nil {
		return err
	}
	if err := a.cfg.WriteConfigAs(a.cfgFile); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return os.Chmod(a.cfgFile, 0o600)
}

// Execute runs vibectl with os.Args.
func Execute() int {
	app := NewApp(os.Stdout)
	if err := app.NewRootCommand().Execute(); err != nil {
		printError(os.Stderr, err)
		return 1
	}
	return 0
}
