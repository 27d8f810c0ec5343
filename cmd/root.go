package cmd

import (
	"fmt"

	"github.com/mikaelmello/gopong/core"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree with its own settings, so that each execution starts from the defaults.
func newRootCmd() *cobra.Command {
	settings := core.DefaultSettings()
	verbosity := 0

	cmd := &cobra.Command{
		Use:   "gopong <destination>",
		Short: "gopong sends a single ping",
		Long: "gopong sends one ICMP echo request to the destination and prints the round-trip time of its reply.\n" +
			"It uses a raw socket, run it as root or grant it CAP_NET_RAW.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.LoggingLevel = loggingLevel(verbosity)
			return runPing(cmd, args[0], settings)
		},
	}

	flags := cmd.Flags()
	flags.Float64VarP(&settings.Timeout, "timeout", "W", settings.Timeout, "time in seconds to wait for a reply")
	flags.IntVarP(&settings.TTL, "ttl", "t", settings.TTL, "IP time to live of the request")
	flags.BoolVar(&settings.VerifyChecksum, "verify-checksum", settings.VerifyChecksum,
		"reject replies whose ICMP checksum does not verify")
	flags.BoolVar(&settings.FailOnForeign, "strict", settings.FailOnForeign,
		"fail on the first datagram that is not our reply instead of dropping it")
	flags.BoolVar(&settings.PIDIdentifier, "pid-id", settings.PIDIdentifier,
		"use the process id as ICMP identifier")
	flags.CountVarP(&verbosity, "verbose", "v", "verbose output, repeat for more")

	return cmd
}

// Execute runs the command line
func Execute() error {
	return newRootCmd().Execute()
}

// runPing pings dest once and prints the outcome.
func runPing(cmd *cobra.Command, dest string, settings *core.Settings) error {
	p, err := core.NewPinger(settings)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}

	out := cmd.OutOrStdout()

	addr, err := core.Resolve(dest)
	if err != nil {
		printOnError(out, dest, err)
		return err
	}
	printOnStart(out, dest, addr)

	rt, err := p.Run(addr)
	if err != nil {
		printOnError(out, dest, err)
		return err
	}

	printOnRoundTrip(out, dest, rt)
	return nil
}

// loggingLevel maps the number of -v flags to a logrus level.
func loggingLevel(verbosity int) uint32 {
	switch {
	case verbosity <= 0:
		return uint32(log.WarnLevel)
	case verbosity == 1:
		return uint32(log.InfoLevel)
	case verbosity == 2:
		return uint32(log.DebugLevel)
	default:
		return uint32(log.TraceLevel)
	}
}
