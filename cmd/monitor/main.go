package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"botdash/internal/botmanager"
	"botdash/internal/config"
	"botdash/internal/console"
	"botdash/internal/history"
	"botdash/internal/livefeed"
	"botdash/internal/logging"
	"botdash/internal/monitor"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const clearScreen = "\x1b[H\x1b[2J"

var (
	flagWidth   int
	flagTZ      string
	flagLogFile string
	flagLimit   int
)

var rootCmd = &cobra.Command{
	Use:           "monitor",
	Short:         "Terminal view of a running bot instance",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCfg, err := config.LoadLog()
		if err != nil {
			return err
		}
		// The screen owns stdout.
		if logCfg.File == "" {
			logCfg.File = flagLogFile
		}
		logging.Init(logCfg)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <instanceId>",
	Short: "Stream logs, bets, tips and balance of an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var historyCmd = &cobra.Command{
	Use:   "history <instanceId>",
	Short: "Print the most recent bets of an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var balanceCmd = &cobra.Command{
	Use:   "balance <instanceId>",
	Short: "Print the account balance of an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

type deps struct {
	monitorCfg config.MonitorConfig
	balances   *botmanager.Client
	history    *history.Client
	feed       *livefeed.Client
}

func loadDeps() (deps, error) {
	monitorCfg, err := config.LoadMonitor()
	if err != nil {
		return deps{}, err
	}
	clientCfg, err := config.LoadClient()
	if err != nil {
		return deps{}, err
	}
	return deps{
		monitorCfg: monitorCfg,
		balances:   botmanager.NewClient(monitorCfg.BotManagerURL, 10*time.Second),
		history:    history.NewClient(clientCfg.DashboardURL, clientCfg.UserID, clientCfg.UserRole, 10*time.Second),
		feed: livefeed.NewClient(livefeed.Config{
			BaseURL:           monitorCfg.BotManagerURL,
			Path:              monitorCfg.SocketPath,
			ReconnectDelay:    monitorCfg.ReconnectDelay,
			ReconnectDelayMax: monitorCfg.ReconnectDelayMax,
		}),
	}, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(flagTZ)
	if err != nil {
		return fmt.Errorf("bad --tz: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	m := monitor.New(args[0], d.balances, d.history, monitor.LiveSubscriber(d.feed), monitor.OptionsFromConfig(d.monitorCfg))
	states := m.Watch()
	lines := readLines(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(ctx) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					lines = nil
					continue
				}
				if handleCommand(line, m) {
					quit()
					return nil
				}
			}
		}
	})
	g.Go(func() error {
		for s := range states {
			draw(out, s, loc, flagWidth)
		}
		return nil
	})
	log.Info().Str("instance_id", args[0]).Msg("monitor started")
	return g.Wait()
}

func runHistory(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	bets, err := d.history.RecentBets(cmd.Context(), args[0], flagLimit)
	if err != nil {
		return err
	}
	v := monitor.Render(monitor.State{InstanceID: args[0], Bets: bets}, time.Local)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), console.Render(v, flagWidth))
	return err
}

func runBalance(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	v, err := d.balances.Balance(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), monitor.FormatMoney(v))
	return err
}

type controller interface {
	RefreshBalance()
	SetInstance(id string)
}

// handleCommand applies one line of keyboard input and reports whether the
// user asked to quit.
func handleCommand(line string, m controller) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "q", "quit":
		return true
	case "r", "refresh":
		m.RefreshBalance()
	case "i", "instance":
		if len(fields) > 1 {
			m.SetInstance(fields[1])
		}
	}
	return false
}

func draw(w io.Writer, s monitor.State, loc *time.Location, width int) {
	fmt.Fprint(w, clearScreen)
	fmt.Fprintln(w, console.Render(monitor.Render(s, loc), width))
	fmt.Fprintln(w, console.Help("r refresh balance", "i <id> switch instance", "q quit"))
}

func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagWidth, "width", "w", 100, "screen width in columns")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "monitor.log", "log file when LOG_FILE is unset")
	watchCmd.Flags().StringVar(&flagTZ, "tz", "Local", "time zone for bet and tip times")
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "n", monitor.DefaultBetHistoryLimit, "number of bets")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(balanceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
