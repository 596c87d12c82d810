package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/repository"
	"github.com/mansoorceksport/liftlog/internal/service"
	"github.com/sirupsen/logrus"
)

const usage = `commands:
  n        complete the set and move on
  s        skip the set (still logged)
  p        back one set
  t        pause or resume the clock
  w <kg>   stage a weight for the set
  q        leave without completing`

func main() {
	backendCfg, err := config.LoadBackend()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	backendURL := flag.String("backend", backendCfg.URL, "workout backend base URL")
	sessionID := flag.Int64("session", 0, "resume an existing session")
	dayID := flag.Int64("day", 0, "start a new session for a workout day")
	planID := flag.Int64("plan", 0, "plan to list days from when neither -session nor -day is set")
	verbose := flag.Bool("v", false, "log background requests")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := repository.NewBackendClient(*backendURL, backendCfg.Timeout)
	if err := run(ctx, backend, log, *sessionID, *dayID, *planID); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, backend *repository.BackendClient, log logrus.FieldLogger, sessionID, dayID, planID int64) error {
	if sessionID == 0 && dayID == 0 {
		return listDays(ctx, backend, planID)
	}
	if sessionID == 0 {
		session, err := backend.CreateSession(ctx, &domain.CreateSessionRequest{WorkoutDayID: dayID})
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		sessionID = session.ID
		fmt.Printf("Started session %d\n", sessionID)
	}

	done := make(chan domain.NavigateReason, 1)
	w := service.NewActiveWorkout(backend, sessionID, service.WorkoutOptions{
		Logger: log,
		OnComplete: func(s *domain.SessionArchive) {
			fmt.Printf("\nWorkout complete: %d sets in %d min\n", len(s.CompletedSets), s.DurationMinutes)
		},
		OnNavigate: func(_ int64, reason domain.NavigateReason) {
			done <- reason
		},
	})
	defer w.Close()

	if err := w.Load(ctx); err != nil {
		return err
	}
	fmt.Println(usage)

	commands := make(chan string)
	go readCommands(commands)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	render(w.View())

	for {
		select {
		case <-ctx.Done():
			return w.Exit()
		case reason := <-done:
			if reason == domain.NavigateExit {
				fmt.Println("\nLeft the workout")
			}
			return nil
		case <-ticker.C:
			render(w.View())
		case line, ok := <-commands:
			if !ok {
				return w.Exit()
			}
			view, err := execute(ctx, w, line)
			switch {
			case errors.Is(err, errQuit):
				return w.Exit()
			case err != nil:
				fmt.Printf("\n%v\n", err)
			case view != nil:
				render(view)
			}
		}
	}
}

var errQuit = errors.New("quit")

func execute(ctx context.Context, w *service.ActiveWorkout, line string) (*domain.WorkoutView, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	switch fields[0] {
	case "n":
		return w.Advance(ctx)
	case "s":
		return w.Skip(ctx)
	case "p":
		return w.Retreat()
	case "t":
		return w.ToggleClock()
	case "w":
		if len(fields) < 2 {
			return w.SetWeight("")
		}
		return w.SetWeight(fields[1])
	case "q":
		return nil, errQuit
	default:
		return nil, fmt.Errorf("unknown command %q\n%s", fields[0], usage)
	}
}

func readCommands(out chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out)
}

func render(v *domain.WorkoutView) {
	if !v.Loaded || v.Exercise == nil || v.Status != domain.StatusActive {
		return
	}
	weight := v.StagedWeight
	if weight == "" {
		weight = "-"
	}
	last := ""
	if v.LastWeight != nil {
		last = fmt.Sprintf(" (last %g kg)", *v.LastWeight)
	}
	fmt.Printf("\r%s | %d/%d %s  set %d/%d  reps %s  weight %s kg%s  [%s %s]   ",
		v.WorkoutName, v.ExerciseNumber, v.TotalExercises, v.Exercise.Name,
		v.Position.SetNumber, v.TotalSets, v.RepsTarget, weight, last, v.Elapsed, v.Clock)
}

func listDays(ctx context.Context, backend *repository.BackendClient, planID int64) error {
	days, err := backend.ListWorkoutDays(ctx, planID)
	if err != nil {
		return fmt.Errorf("list workout days: %w", err)
	}
	if len(days) == 0 {
		fmt.Println("No workout days found")
		return nil
	}
	for _, d := range days {
		fmt.Printf("%4d  Day %d  %s (%d exercises)\n", d.ID, d.DayNumber, d.Name, d.ExerciseCount)
	}
	fmt.Println("\nStart one with: workout -day <id>")
	return nil
}
