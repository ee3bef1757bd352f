package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/present"
	"github.com/sells-group/floodsense/internal/workflow"
)

var (
	sessionWatch   bool
	sessionOffline bool
)

const sessionHelp = `Commands:
  select <lat> <lng>  select a point on the map
  analyze             analyze flood risk for the selected point
  clear               clear the selection
  show                print the region panel
  wait                wait for in-flight work, then print the panel
  help                show this help
  quit                leave the session`

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Interactive point selection and flood-risk analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "session", sessionOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		w := env.NewWorkflow(ctx)
		defer w.Close()

		return runSession(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), w, sessionWatch)
	},
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionWatch, "watch", true, "print the panel after every state change")
	sessionCmd.Flags().BoolVar(&sessionOffline, "offline", false, "use the canned offline prediction")
	rootCmd.AddCommand(sessionCmd)
}

// sessionOutput serializes writes from the command loop and the printer.
type sessionOutput struct {
	mu  sync.Mutex
	out io.Writer
}

func (o *sessionOutput) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprintf(o.out, format, args...)
}

func (o *sessionOutput) panel(snap model.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := present.RenderText(o.out, present.Build(snap)); err != nil {
		zap.L().Warn("session: render panel", zap.Error(err))
	}
	_, _ = fmt.Fprintln(o.out)
}

// runSession reads commands from in until quit, EOF, or ctx is done.
// Failure notifications are always printed; with watch set, every state
// change is printed as well.
func runSession(ctx context.Context, in io.Reader, out io.Writer, w *workflow.Workflow, watch bool) error {
	o := &sessionOutput{out: out}

	notes, cancelNotes := w.Notifications(0)
	var states <-chan model.Snapshot
	cancelStates := func() {}
	if watch {
		states, cancelStates = w.Subscribe(0)
	}

	var printer sync.WaitGroup
	printer.Add(1)
	go func() {
		defer printer.Done()
		for notes != nil || states != nil {
			select {
			case n, ok := <-notes:
				if !ok {
					notes = nil
					continue
				}
				o.printf("! %s\n", n.Message)
			case snap, ok := <-states:
				if !ok {
					states = nil
					continue
				}
				o.panel(snap)
			}
		}
	}()
	defer func() {
		cancelNotes()
		cancelStates()
		printer.Wait()
	}()

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	o.printf("%s\n", sessionHelp)
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "select":
			p, err := parsePointArgs(fields[1:])
			if err != nil {
				o.printf("error: %v\n", err)
				continue
			}
			w.SelectPoint(p)
		case "analyze":
			if !w.RequestAnalysis() {
				o.printf("analysis not available in the current state\n")
			}
		case "clear":
			w.Clear()
		case "show":
			o.panel(w.Snapshot())
		case "wait":
			snap, err := w.Settled(ctx)
			if err != nil {
				return nil
			}
			o.panel(snap)
		case "help", "?":
			o.printf("%s\n", sessionHelp)
		case "quit", "exit":
			return nil
		default:
			o.printf("unknown command %q (type help)\n", fields[0])
		}
	}
}

func parsePointArgs(args []string) (model.Point, error) {
	if len(args) != 2 {
		return model.Point{}, eris.New("usage: select <lat> <lng>")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return model.Point{}, eris.Errorf("invalid latitude %q", args[0])
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return model.Point{}, eris.Errorf("invalid longitude %q", args[1])
	}
	return model.NewPoint(lat, lng), nil
}
