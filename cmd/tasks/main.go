package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"task-tracker/internal/config"
	"task-tracker/internal/db"
	"task-tracker/pkg/client"
	"task-tracker/pkg/task"
)

var stdout io.Writer = os.Stdout

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if os.Args[1] == "init" {
		if err := handleInit(ctx, os.Args[2:]); err != nil {
			fatal("%v", err)
		}
		return
	}

	base := os.Getenv("API_BASE")
	if base == "" {
		base = "http://localhost:5000/"
	}
	if err := dispatch(ctx, client.NewSession(client.New(base, nil), quietLogger()), os.Args[1:]); err != nil {
		fatal("%v", err)
	}
}

func dispatch(ctx context.Context, s *client.Session, args []string) error {
	switch args[0] {
	case "list":
		return handleList(ctx, s, args[1:])
	case "add":
		return handleAdd(ctx, s, args[1:])
	case "toggle":
		return withID(args, func(id int64) error {
			if err := s.Refresh(ctx); err != nil {
				return err
			}
			t, err := s.Toggle(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(t)
		})
	case "rename":
		return withID(args, func(id int64) error {
			title := strings.Join(args[2:], " ")
			t, err := s.Rename(ctx, id, title)
			if err != nil {
				return err
			}
			return printJSON(t)
		})
	case "delete":
		return withID(args, func(id int64) error {
			if err := s.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "deleted %d\n", id)
			return nil
		})
	case "status":
		if err := s.Refresh(ctx); err != nil {
			return err
		}
		sum := s.State().Summary()
		fmt.Fprintf(stdout, "total: %d  completed: %d  pending: %d\n", sum.Total, sum.Completed, sum.Pending)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func handleList(ctx context.Context, s *client.Session, args []string) error {
	flags := parseFlags(args)
	if f := flags["filter"]; f != "" {
		filter, err := client.ParseFilter(f)
		if err != nil {
			return err
		}
		s.State().SetFilter(filter)
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	tasks := s.State().Visible()
	if limit := intFlag(flags, "limit", 0); limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	if flags["format"] == "short" {
		printShortTasks(tasks)
		return nil
	}
	return printJSON(tasks)
}

func handleAdd(ctx context.Context, s *client.Session, args []string) error {
	title := strings.Join(args, " ")
	t, err := s.Add(ctx, title)
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	if t == nil {
		return fmt.Errorf("a title is required")
	}
	return printJSON(t)
}

// handleInit creates the tasks table (and database) with the server's
// configuration, seeding it when enabled.
func handleInit(ctx context.Context, args []string) error {
	flags := parseFlags(args)
	cfg, err := config.Load(flags["config"])
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	storage, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer storage.Close()
	fmt.Fprintf(stdout, "storage ready (%s)\n", cfg.Database.Driver)
	return nil
}

func withID(args []string, fn func(id int64) error) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tasks %s <id>", args[0])
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid task id %q", args[1])
	}
	return fn(id)
}

func quietLogger() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if idx := strings.Index(arg, "="); idx >= 0 {
			flags[arg[:idx]] = arg[idx+1:]
		} else {
			flags[arg] = ""
		}
	}
	return flags
}

func intFlag(flags map[string]string, key string, defaultVal int) int {
	if v, ok := flags[key]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncStr(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func printShortTasks(tasks []task.Task) {
	for _, t := range tasks {
		mark := " "
		if t.Status == task.StatusCompleted {
			mark = "x"
		}
		fmt.Fprintf(stdout, "%6d  [%s]  %s\n", t.ID, mark, truncStr(t.Title, 60))
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tasks: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: tasks <command>

Commands:
  list     List tasks [--filter=all|pending|completed] [--limit=N] [--format=short]
  add      Add a task: tasks add <title...>
  toggle   Flip a task between pending and completed: tasks toggle <id>
  rename   Change a title: tasks rename <id> <title...>
  delete   Delete a task: tasks delete <id>
  status   Show total, completed and pending counts
  init     Create the database and tasks table [--config=path]

Environment:
  API_BASE  server root (default http://localhost:5000/)`)
}
