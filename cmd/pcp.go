package cmd

import (
	"time"

	"github.com/liamg/nagprobe/pcp"
	"github.com/liamg/nagprobe/plugin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type pcpFlags struct {
	host             string
	metric           string
	instance         string
	warning          string
	critical         string
	timeout          float64
	versionRequested bool
}

func (a *app) newPCPCmd() *cobra.Command {
	var f pcpFlags

	pcpCmd := &cobra.Command{
		Use:   "pcp",
		Short: "Check a Performance Co-Pilot metric",
		Long: `Samples a PCP metric once with pmval and compares it with the warning and
critical ranges.

A list of all PCP metrics can be found with 'pminfo', and the instances of a
metric with 'pminfo -f <metric>'.`,
		Example: `  # warn if the 5 minute load average is above 2, critical above 10
  nagprobe pcp -i 5 -m kernel.all.load -w 2 -c 10

  # monitor how full /dev/sda1 is
  nagprobe pcp -i /dev/sda1 -m filesys.full -w 70 -c 90`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if noArgs(cmd, args) {
				_ = cmd.Help()
				return
			}

			c, err := a.setup()
			if err != nil {
				a.emit(plugin.Unknown("PCP UNKNOWN - %s", err))
				return
			}

			if f.versionRequested {
				a.version("check_pcpmetric")
				a.code = plugin.StateOK.ExitCode()
				return
			}

			th, err := plugin.ParseThresholds(f.warning, f.critical)
			if err != nil {
				log.Debugf("%s", err)
				_ = cmd.Usage()
				a.emit(plugin.Unknown("PCP UNKNOWN - %s", err))
				return
			}

			config := pcp.Config{
				Pmval:        c.PCP.Pmval,
				Host:         f.host,
				Metric:       f.metric,
				Instance:     f.instance,
				Thresholds:   th,
				Timeout:      c.PCP.Timeout,
				PollInterval: c.PCP.PollInterval,
				TempDir:      c.TempDir,
			}
			if cmd.Flags().Changed("timeout") {
				config.Timeout = time.Duration(f.timeout * float64(time.Second))
			}
			log.Debugf("Command: %v", config.Command())

			a.emit(pcp.NewCheck(config).Run())
		},
	}

	pcpCmd.Flags().StringVarP(&f.host, "host", "H", f.host, "Hostname to contact")
	pcpCmd.Flags().StringVarP(&f.metric, "metric", "m", f.metric, "PCP metric to check")
	pcpCmd.Flags().StringVarP(&f.instance, "instance", "i", f.instance, "PCP metric instance")
	pcpCmd.Flags().StringVarP(&f.warning, "warning", "w", f.warning, "Warning range, e.g. 2 alerts above 2")
	pcpCmd.Flags().StringVarP(&f.critical, "critical", "c", f.critical, "Critical range")
	pcpCmd.Flags().Float64VarP(&f.timeout, "timeout", "t", 10, "Timeout in seconds")
	pcpCmd.Flags().BoolVarP(&a.debug, "debug", "v", a.debug, "Enable verbose logging")
	pcpCmd.Flags().BoolVarP(&f.versionRequested, "version", "V", f.versionRequested, "Output version information and exit")

	return pcpCmd
}
