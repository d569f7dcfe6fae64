package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/liamg/nagprobe/config"
	"github.com/liamg/nagprobe/plugin"
	"github.com/liamg/nagprobe/version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// aliases maps the names the plugins are installed under to subcommands.
var aliases = map[string]string{
	"check_nmap":          "nmap",
	"check_ports":         "nmap",
	"check_pcpmetric":     "pcp",
	"check_asterisk_peer": "asterisk",
}

// app holds the state of one invocation. Every path through it ends with a
// single status line on out and an exit code in code.
type app struct {
	out        io.Writer
	configPath string
	debug      bool
	code       int
}

func newApp(out io.Writer) *app {
	return &app{
		out:  out,
		code: plugin.StateUnknown.ExitCode(),
	}
}

func (a *app) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nagprobe",
		Short: "nagprobe is a collection of Nagios plugins",
		Long: `Nagios-compatible checks: open ports via nmap, Performance Co-Pilot metrics
via pmval and Asterisk peers via the manager interface.

Exit codes: 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "", a.configPath, "Config file (default /etc/nagprobe/nagprobe.yaml)")
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.out)

	rootCmd.AddCommand(
		a.newNmapCmd(),
		a.newPCPCmd(),
		a.newAsteriskCmd(),
	)

	return rootCmd
}

// setup applies the debug flag and loads the plugin-wide defaults.
func (a *app) setup() (*config.Config, error) {
	if a.debug {
		log.SetLevel(log.DebugLevel)
		log.SetOutput(a.out)
	}

	c, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	log.Debugf("Config: %+v", *c)

	return c, nil
}

// emit prints the result line and records its exit code.
func (a *app) emit(result plugin.Result) {
	a.code = result.Emit(a.out)
	log.Debugf("Exitcode: %d %s", a.code, plugin.State(a.code))
}

func (a *app) version(name string) {
	fmt.Fprintf(a.out, "%s %s\n", name, version.String())
}

// noArgs reports whether cmd was run bare, which shows its usage.
func noArgs(cmd *cobra.Command, args []string) bool {
	return cmd.Flags().NFlag() == 0 && len(args) == 0
}

// run executes one invocation and returns the process exit code. argv0
// selects a subcommand when the binary is installed under a plugin name.
func run(argv0 string, args []string, out io.Writer) int {
	if sub, ok := aliases[filepath.Base(argv0)]; ok {
		args = append([]string{sub}, args...)
	}

	a := newApp(out)
	rootCmd := a.newRootCmd()
	rootCmd.SetArgs(args)

	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		log.Debugf("%s", err)
		_ = cmd.Usage()
		a.emit(plugin.Unknown(badParams))
	}

	return a.code
}

func Execute() {
	os.Exit(run(os.Args[0], os.Args[1:], os.Stdout))
}
