package replay

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/ValentinKolb/dLock/cmd/util"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// ReplayCmd replays a script against a local participant
	ReplayCmd = &cobra.Command{
		Use:   "replay [file]",
		Short: "Replay lock steps and server frames against a participant",
		Long: util.WrapString(`Replay reads a script of JSON frames, one per line, and applies them to a
client lock manager. Local steps ("lock", "unlock") are run for local threads, server
frames ("award", "recall", "recallCommitted", "resync") are delivered as if the lock
server had sent them. Every frame the participant sends to the server and the state of
the lock after each step are printed. Without a file the script is read from stdin.`),
		Example: `  echo '{"msg_type":"lock","lock":"a","thread":1,"lockLevel":"write"}' | dlock replay`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runReplay,
	}
)

func init() {
	util.SetupParticipantFlags(ReplayCmd)

	key := "step-wait"
	ReplayCmd.Flags().Duration(key, 20*time.Millisecond, util.WrapString("How long to wait after each step before the state is printed"))

	key = "metrics"
	ReplayCmd.Flags().Bool(key, false, util.WrapString("Print the metrics of the participant after the replay"))
}

func runReplay(cmd *cobra.Command, args []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()
	if err := common.InitLoggers(*config); err != nil {
		return err
	}
	Logger.Infof("participant configuration:%s", config)

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	var script io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		script = f
	}

	r, err := newReplayer(cmd.OutOrStdout(), *config, s, viper.GetDuration("step-wait"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	r.manager.Start(ctx)

	runErr := r.run(ctx, script)

	if viper.GetBool("metrics") {
		r.manager.Metrics(cmd.OutOrStdout())
	}
	if err := r.close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
