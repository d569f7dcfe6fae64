package cmd

import (
	"context"
	"time"

	"github.com/liamg/nagprobe/asterisk"
	"github.com/liamg/nagprobe/plugin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type asteriskFlags struct {
	user             string
	secret           string
	host             string
	port             int
	peerType         string
	peer             string
	warning          string
	critical         string
	timeout          float64
	all              bool
	verbose          bool
	versionRequested bool
}

func (a *app) newAsteriskCmd() *cobra.Command {
	var f asteriskFlags

	asteriskCmd := &cobra.Command{
		Use:   "asterisk",
		Short: "Check the state of an Asterisk SIP, PJSIP or IAX peer",
		Long: `Logs in to the Asterisk manager interface and checks a peer.

sip and iax peers are judged by their status (OK, LAGGED, UNKNOWN, unmonitored
or unreachable). pjsip peers are judged by their contact availability and the
round trip time is compared with the warning and critical ranges.`,
		Example: "  nagprobe asterisk -u nagios -s secret -t pjsip -p 1000 -w 100 -c 500",
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
				a.version("check_asterisk_peer")
				a.code = plugin.StateOK.ExitCode()
				return
			}

			th, err := plugin.ParseThresholds(f.warning, f.critical)
			if err != nil {
				log.Debugf("%s", err)
				_ = cmd.Usage()
				a.emit(plugin.Unknown("UNKNOWN - %s", err))
				return
			}

			config := asterisk.Config{
				Host:       c.Asterisk.Host,
				Port:       c.Asterisk.Port,
				User:       f.user,
				Secret:     f.secret,
				Type:       asterisk.PeerType(f.peerType),
				Peer:       f.peer,
				All:        f.all,
				Verbose:    f.verbose,
				Thresholds: th,
				Timeout:    c.Asterisk.Timeout,
			}
			if cmd.Flags().Changed("host") {
				config.Host = f.host
			}
			if cmd.Flags().Changed("port") {
				config.Port = f.port
			}
			if cmd.Flags().Changed("timeout") {
				config.Timeout = time.Duration(f.timeout * float64(time.Second))
			}
			log.Debugf("Params: %s", config)

			a.emit(asterisk.NewCheck(config).Run(context.Background()))
		},
	}

	asteriskCmd.Flags().StringVarP(&f.user, "username", "u", f.user, "Username for AMI")
	asteriskCmd.Flags().StringVarP(&f.secret, "secret", "s", f.secret, "Password for AMI")
	asteriskCmd.Flags().StringVarP(&f.host, "host", "H", "127.0.0.1", "The host to connect to")
	asteriskCmd.Flags().IntVarP(&f.port, "port", "P", 5038, "The port to contact")
	asteriskCmd.Flags().StringVarP(&f.peerType, "type", "t", "sip", "Peer type: sip, pjsip or iax")
	asteriskCmd.Flags().StringVarP(&f.peer, "peer", "p", f.peer, "The peer name to check")
	asteriskCmd.Flags().StringVarP(&f.warning, "warning", "w", f.warning, "RTT warning range in ms (pjsip)")
	asteriskCmd.Flags().StringVarP(&f.critical, "critical", "c", f.critical, "RTT critical range in ms (pjsip)")
	asteriskCmd.Flags().Float64VarP(&f.timeout, "timeout", "T", 10, "Timeout in seconds")
	asteriskCmd.Flags().BoolVarP(&f.all, "all", "a", f.all, "Print the output of the peer listing")
	asteriskCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", f.verbose, "Print the whole command output")
	asteriskCmd.Flags().BoolVarP(&a.debug, "debug", "", a.debug, "Enable debug logging")
	asteriskCmd.Flags().BoolVarP(&f.versionRequested, "version", "V", f.versionRequested, "Output version information and exit")

	return asteriskCmd
}
