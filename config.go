package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind        string
	chamberMode bool
	defaultRoom string
	idleTimeout time.Duration
	maxPlayers  int
	odds        string
	port        int
	profile     bool
	tlsCert     string
	tlsKey      string
	verbose     bool
	version     bool
	web         bool
	webPort     int

	oddsNum int
	oddsDen int
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.web && (c.webPort < 1 || c.webPort > 65535) {
		return fmt.Errorf("invalid web port (must be between 1-65535 inclusive): %d", c.webPort)
	}
	if c.maxPlayers < 1 {
		return fmt.Errorf("invalid max players (must be at least 1): %d", c.maxPlayers)
	}
	if strings.TrimSpace(c.defaultRoom) == "" {
		return errors.New("default room name must not be empty")
	}

	num, den, err := parseOdds(c.odds)
	if err != nil {
		return err
	}
	c.oddsNum, c.oddsDen = num, den

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// parseOdds reads a "numerator/denominator" probability like "1/6".
func parseOdds(odds string) (num, den int, err error) {
	parts := strings.SplitN(odds, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid odds (must be numerator/denominator, e.g. 1/6): %q", odds)
	}

	num, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid odds numerator: %q", parts[0])
	}
	den, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid odds denominator: %q", parts[1])
	}

	if num < 1 || den < 1 || num > den || den > 255 {
		return 0, 0, fmt.Errorf("invalid odds (need 1 <= numerator <= denominator <= 255): %q", odds)
	}

	return num, den, nil
}

// newDraw builds the configured outcome source: independent draws by
// default, or the shuffled-chamber variant when --chamber is set.
func (c *Config) newDraw() func() bool {
	if c.chamberMode {
		return chamberDraw(c.oddsNum, c.oddsDen)
	}
	return independentDraw(c.oddsNum, c.oddsDen)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CHAMBER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "chamber",
		Short:         "A LAN chat and Russian Roulette party game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CHAMBER_BIND)")
	fs.BoolVar(&cfg.chamberMode, "chamber", false, "use a shuffled six-slot chamber instead of independent draws (env: CHAMBER_CHAMBER)")
	fs.StringVar(&cfg.defaultRoom, "default-room", "general", "room new players are placed in (env: CHAMBER_DEFAULT_ROOM)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", 0, "time before an idle connection is treated as gone, 0 to disable (env: CHAMBER_IDLE_TIMEOUT)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 8, "maximum concurrent connections (env: CHAMBER_MAX_PLAYERS)")
	fs.StringVar(&cfg.odds, "odds", "1/6", "live-round probability as numerator/denominator (env: CHAMBER_ODDS)")
	fs.IntVarP(&cfg.port, "port", "p", 4160, "port for the game listener (env: CHAMBER_PORT)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CHAMBER_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate for the web surface (env: CHAMBER_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile for the web surface (env: CHAMBER_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CHAMBER_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CHAMBER_VERSION)")
	fs.BoolVar(&cfg.web, "web", true, "serve the status/websocket web surface (env: CHAMBER_WEB)")
	fs.IntVar(&cfg.webPort, "web-port", 8080, "port for the web surface (env: CHAMBER_WEB_PORT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("chamber v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
