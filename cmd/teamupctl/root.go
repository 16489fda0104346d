package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	teamup "github.com/huykn/teamup-client"
	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
	"github.com/huykn/teamup-client/token"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	v      *viper.Viper
	client *teamup.Client
	log    *zap.Logger
	out    io.Writer
}

func newApp() *app {
	return &app{v: viper.New()}
}

// newRootCmd builds the command tree. The caller closes a after Execute.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "teamupctl",
		Short:         "Command line client for the team-up platform",
		Version:       teamup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			if err := a.loadConfig(); err != nil {
				return err
			}
			return a.connect()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default $TEAMUP_HOME/config.yaml)")
	flags.String("base-url", teamup.DefaultConfig().BaseURL, "platform API base URL")
	flags.Duration("timeout", httpclient.DefaultTimeout, "request timeout")
	flags.String("redis-addr", "", "Redis address for shared snapshots and invalidation")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.Bool("debug", false, "debug logging")
	for _, name := range []string{"config", "base-url", "timeout", "redis-addr", "output", "debug"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newGroupsCmd(a),
		newPostsCmd(a),
		newUsersCmd(a),
		newRequestsCmd(a),
	)
	return root
}

// homeDir is the directory holding the cookie file and config.yaml.
func homeDir() (string, error) {
	cookies, err := token.DefaultCookiePath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(cookies), nil
}

// loadConfig reads flags, TEAMUP_* variables and the config file, in that
// order of precedence.
func (a *app) loadConfig() error {
	a.v.SetEnvPrefix("TEAMUP")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if file := a.v.GetString("config"); file != "" {
		a.v.SetConfigFile(file)
	} else {
		home, err := homeDir()
		if err != nil {
			return err
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if a.v.GetBool("debug") {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func (a *app) connect() error {
	log, err := a.newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.log = log

	cookiePath, err := token.DefaultCookiePath()
	if err != nil {
		return err
	}
	cookies, err := token.NewFileCookieStore(cookiePath)
	if err != nil {
		return err
	}

	cfg := teamup.DefaultConfig()
	cfg.BaseURL = a.v.GetString("base-url")
	cfg.Timeout = a.v.GetDuration("timeout")
	cfg.RedisAddr = a.v.GetString("redis-addr")
	cfg.Cookies = cookies
	cfg.Logger = cache.NewZapLogger(log)
	cfg.DebugMode = a.v.GetBool("debug")
	cfg.OnError = func(err error) { log.Warn("background refresh failed", zap.Error(err)) }

	client, err := teamup.New(cfg)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *app) close() error {
	var err error
	if a.client != nil {
		err = a.client.Close()
		a.client = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

func (a *app) requireSession() error {
	if !a.client.Tokens.IsAuthenticated() {
		return fmt.Errorf("%w: run teamupctl login first", teamup.ErrUnauthenticated)
	}
	return nil
}

// print writes v in the selected format. The table format calls table with
// a tab-aligned writer.
func (a *app) print(v any, table func(w io.Writer)) error {
	switch format := a.v.GetString("output"); format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = a.out.Write(out)
		return err
	case "table", "":
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
