package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/studyplan/studyplan/internal/controller"
	"github.com/studyplan/studyplan/internal/export"
	"github.com/studyplan/studyplan/internal/logger"
	"github.com/studyplan/studyplan/internal/plan"
	"github.com/studyplan/studyplan/internal/render"
)

const shellPrompt = "studyplan> "

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive planning session",
	Long: `Start an interactive session backed by a single plan controller.

Generate requests run in the background: issuing a new one while another
is in flight supersedes it, and only the latest answer is shown. The
success banner clears itself after a few seconds.`,
	Example: `  studyplan shell
  studyplan> generate Python, DSA | 3 | 5
  studyplan> export plans/`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "warn")
		if err != nil {
			return err
		}
		defer a.Close()

		s := newShell(cmd.OutOrStdout(), a.controller, a.exporter, a.exportDir, a.log)
		return s.run(cmd.Context(), cmd.InOrStdin())
	},
}

// shell is a line-oriented REPL. Controller transitions arrive on other
// goroutines, so all output goes through mu.
type shell struct {
	out      io.Writer
	printer  *render.Printer
	ctrl     *controller.Controller
	exporter *export.Service
	// resolveDir maps the export argument to a directory. It runs only
	// when a plan is exported.
	resolveDir func(dir string) (string, error)
	log        *logger.Logger

	mu       sync.Mutex
	inflight sync.WaitGroup
	lastFlag bool
}

func newShell(out io.Writer, ctrl *controller.Controller, exporter *export.Service, resolveDir func(string) (string, error), log *logger.Logger) *shell {
	if log == nil {
		log = logger.Nop()
	}
	return &shell{
		out:        out,
		printer:    render.New(out),
		ctrl:       ctrl,
		exporter:   exporter,
		resolveDir: resolveDir,
		log:        log,
	}
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	unsubscribe := s.ctrl.Subscribe(s.onState)
	defer unsubscribe()

	s.print(func() {
		PrintInfo(s.out, `Type "help" for commands.`)
	})

	scanner := bufio.NewScanner(in)
	for {
		s.print(func() { fmt.Fprint(s.out, shellPrompt) })
		if !scanner.Scan() {
			break
		}
		if quit := s.dispatch(ctx, scanner.Text()); quit {
			break
		}
	}
	s.inflight.Wait()
	return scanner.Err()
}

// dispatch runs one command line and reports whether the session should end.
func (s *shell) dispatch(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "quit", "exit":
		return true
	case "help":
		s.print(s.help)
	case "generate", "gen":
		s.generate(ctx, parseShellInput(rest))
	case "show":
		s.print(func() { s.printer.Plan(s.ctrl.Snapshot().Model) })
	case "status":
		s.print(func() { s.printer.Status(s.ctrl.Snapshot()) })
	case "wait":
		s.inflight.Wait()
	case "export":
		s.export(rest)
	default:
		s.print(func() {
			PrintWarning(s.out, fmt.Sprintf("unknown command %q (try \"help\")", name))
		})
	}
	return false
}

func (s *shell) generate(ctx context.Context, in controller.Input) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		_, err := s.ctrl.Generate(ctx, in)
		if errors.Is(err, controller.ErrSuperseded) {
			s.log.Debug("generate superseded", "subjects", in.Subjects)
		}
	}()
}

func (s *shell) export(arg string) {
	m := s.ctrl.Snapshot().Model
	path, err := s.exportModel(m, arg)
	s.print(func() {
		if err != nil {
			fmt.Fprintln(s.out, formatError(err))
			return
		}
		PrintSuccess(s.out, "Plan saved to: "+path)
	})
}

func (s *shell) exportModel(m *plan.Model, arg string) (string, error) {
	if m == nil {
		return "", export.ErrNoData
	}
	dir, err := s.resolveDir(arg)
	if err != nil {
		return "", err
	}
	return s.exporter.ExportTo(m, dir)
}

// onState prints controller transitions. The success flag dropping on
// its own is not announced.
func (s *shell) onState(st controller.State) {
	s.print(func() {
		flagDropped := s.lastFlag && !st.SuccessFlag && st.Phase == controller.PhaseSuccess
		s.lastFlag = st.SuccessFlag
		if flagDropped {
			return
		}
		fmt.Fprintln(s.out)
		if st.Phase == controller.PhaseSuccess {
			s.printer.Plan(st.Model)
			fmt.Fprintln(s.out)
		}
		s.printer.Status(st)
	})
}

func (s *shell) help() {
	PrintSection(s.out, "Commands")
	PrintLabelValue(s.out, "generate <subjects> | <hours> | <days>", "request a plan (hours default 3, days 6)")
	PrintLabelValue(s.out, "show", "print the current plan")
	PrintLabelValue(s.out, "status", "print the request state")
	PrintLabelValue(s.out, "export [dir]", "save the current plan as JSON")
	PrintLabelValue(s.out, "wait", "block until pending requests finish")
	PrintLabelValue(s.out, "quit", "leave the shell")
}

func (s *shell) print(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// parseShellInput splits "subjects | hours | days". Missing fields take
// the same defaults as the generate command.
func parseShellInput(args string) controller.Input {
	in := controller.Input{Hours: "3", DaysPerWeek: "6"}
	parts := strings.Split(args, "|")
	in.Subjects = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		in.Hours = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		in.DaysPerWeek = strings.TrimSpace(parts[2])
	}
	return in
}
