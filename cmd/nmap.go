package cmd

import (
	"time"

	"github.com/liamg/nagprobe/plugin"
	"github.com/liamg/nagprobe/scan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const badParams = scan.BadParamsMessage

type nmapFlags struct {
	host             string
	ports            string
	optional         string
	portRange        string
	timeout          float64
	versionRequested bool
}

func (a *app) newNmapCmd() *cobra.Command {
	var f nmapFlags

	nmapCmd := &cobra.Command{
		Use:   "nmap",
		Short: "Verify the open ports of a host",
		Long: `Scans a host with nmap and compares the open ports with the expected ones.

If all specified ports are open, OK is returned.
If any of them are closed, WARNING is returned (except for optional ports).
If other ports are open, CRITICAL is returned.

If possible, supply an IP address for the host, as this bypasses the DNS lookup.`,
		Aliases: []string{"ports"},
		Example: "  nagprobe nmap -H 10.0.0.1 -p 22,80 -o 443 -r :1024,3000:7000",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if noArgs(cmd, args) {
				_ = cmd.Help()
				return
			}

			c, err := a.setup()
			if err != nil {
				a.emit(plugin.Unknown("UNKNOWN - %s", err))
				return
			}

			if f.versionRequested {
				// Asking for the version always ends the run as UNKNOWN.
				a.version("check_nmap")
				return
			}

			config, err := f.config(c.Nmap.Command, c.TempDir)
			if err != nil {
				log.Debugf("%s", err)
				_ = cmd.Usage()
				a.emit(plugin.Unknown(badParams))
				return
			}
			if !cmd.Flags().Changed("timeout") {
				config.Timeout = c.Nmap.Timeout
			}
			config.PollInterval = c.Nmap.PollInterval

			a.emit(scan.NewChecker(config).Run())
		},
	}

	nmapCmd.Flags().StringVarP(&f.host, "host", "H", f.host, "Host to check (name or IP address)")
	nmapCmd.Flags().StringVarP(&f.ports, "port", "p", f.ports, "Ports that should be open, comma or space separated")
	nmapCmd.Flags().StringVarP(&f.optional, "optional", "o", f.optional, "Ports that may be open; no warning is given if they are closed")
	nmapCmd.Flags().StringVarP(&f.portRange, "range", "r", f.portRange, "Port range to feed to nmap, e.g. :1024,2049,3000:7000")
	nmapCmd.Flags().Float64VarP(&f.timeout, "timeout", "t", scan.DefaultTimeout.Seconds(), "Timeout in seconds")
	nmapCmd.Flags().BoolVarP(&a.debug, "debug", "v", a.debug, "Debug mode, show some extra output")
	nmapCmd.Flags().BoolVarP(&f.versionRequested, "version", "V", f.versionRequested, "Output version information and exit")

	return nmapCmd
}

func (f nmapFlags) config(command []string, tempDir string) (scan.Config, error) {
	if f.host == "" {
		return scan.Config{}, errors.Wrap(scan.ErrBadConfig, "no host")
	}

	ports, err := scan.ParsePortList(f.ports)
	if err != nil {
		return scan.Config{}, err
	}

	optional, err := scan.ParsePortList(f.optional)
	if err != nil {
		return scan.Config{}, err
	}

	config := scan.Config{
		Host:     f.host,
		Ports:    ports,
		Optional: optional,
		Range:    f.portRange,
		Timeout:  time.Duration(f.timeout * float64(time.Second)),
		Command:  command,
		TempDir:  tempDir,
	}

	return config, nil
}
