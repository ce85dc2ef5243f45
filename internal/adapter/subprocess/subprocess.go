// Package subprocess adapts a command-line memory tool to the adapter
// contract. The tool is expected to expose ingest/index/search/clear
// subcommands operating on a per-container state directory, with search
// results printed as a JSON array of hits on stdout.
package subprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/openclaw/membench/internal/adapter"
	"github.com/openclaw/membench/internal/models"
)

const (
	defaultStateRoot      = "artifacts/provider-state"
	defaultCommandTimeout = 120 * time.Second
	defaultGracePeriod    = 5 * time.Second
)

var safeTagRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func init() {
	adapter.Register("subprocess", func() adapter.Adapter { return &Adapter{} })
}

// Adapter shells out to an external memory CLI. Each container tag maps to
// its own state directory, so clearing one tag can never touch another's data.
type Adapter struct {
	commandBase    []string
	stateRoot      string
	commandTimeout time.Duration
	gracePeriod    time.Duration
	extraEnv       map[string]string
}

// Name returns the adapter kind.
func (a *Adapter) Name() string { return "subprocess" }

// Initialize resolves the command line, state root and timeouts from the
// provider configuration map.
func (a *Adapter) Initialize(_ context.Context, config map[string]any) error {
	a.stateRoot = defaultStateRoot
	a.commandTimeout = defaultCommandTimeout
	a.gracePeriod = defaultGracePeriod
	a.extraEnv = map[string]string{}

	switch cmd := config["command"].(type) {
	case string:
		if cmd == "" {
			return fmt.Errorf("subprocess adapter: command must not be empty")
		}
		a.commandBase = []string{cmd}
	case []any:
		for _, part := range cmd {
			s, ok := part.(string)
			if !ok {
				return fmt.Errorf("subprocess adapter: command parts must be strings, got %T", part)
			}
			a.commandBase = append(a.commandBase, s)
		}
	case nil:
		return fmt.Errorf("subprocess adapter: config requires a command")
	default:
		return fmt.Errorf("subprocess adapter: command must be a string or list, got %T", cmd)
	}
	if len(a.commandBase) == 0 {
		return fmt.Errorf("subprocess adapter: command must not be empty")
	}

	if root, ok := config["state_root"].(string); ok && root != "" {
		a.stateRoot = root
	}
	if sec, ok := toFloat(config["command_timeout_sec"]); ok && sec > 0 {
		a.commandTimeout = time.Duration(sec * float64(time.Second))
	}
	if sec, ok := toFloat(config["grace_period_sec"]); ok && sec > 0 {
		a.gracePeriod = time.Duration(sec * float64(time.Second))
	}
	if env, ok := config["env"].(map[string]any); ok {
		for k, v := range env {
			if s, ok := v.(string); ok {
				a.extraEnv[k] = s
			}
		}
	}

	return os.MkdirAll(a.stateRoot, 0755)
}

// Ingest writes the sessions to a temporary JSONL file (one row per message,
// tagged with its session id) and feeds it to the tool's ingest subcommand.
func (a *Adapter) Ingest(ctx context.Context, sessions []models.Session, containerTag string) (map[string]any, error) {
	stateDir, err := a.stateDir(containerTag)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "membench-ingest-*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("creating ingest file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	rows := 0
	for _, s := range sessions {
		for _, m := range s.Messages {
			row := map[string]any{
				"session_id": s.SessionID,
				"role":       m.Role,
				"content":    m.Content,
			}
			if m.Timestamp != "" {
				row["ts"] = m.Timestamp
			}
			if err := enc.Encode(row); err != nil {
				tmp.Close()
				return nil, fmt.Errorf("writing ingest file: %w", err)
			}
			rows++
		}
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing ingest file: %w", err)
	}

	stdout, err := a.run(ctx, "ingest", "--state", stateDir, "--input", tmp.Name())
	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"sessions": len(sessions),
		"messages": rows,
	}
	if len(bytes.TrimSpace(stdout)) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(stdout, &payload); err != nil {
			return nil, fmt.Errorf("parsing ingest output: %w", err)
		}
		for k, v := range payload {
			result[k] = v
		}
	}
	return result, nil
}

// AwaitIndexing runs the tool's index subcommand, which blocks until ingested
// data is searchable.
func (a *Adapter) AwaitIndexing(ctx context.Context, _ map[string]any, containerTag string) error {
	stateDir, err := a.stateDir(containerTag)
	if err != nil {
		return err
	}
	_, err = a.run(ctx, "index", "--state", stateDir)
	return err
}

// Search runs the tool's search subcommand and parses its JSON hit list.
func (a *Adapter) Search(ctx context.Context, query, containerTag string, limit int) ([]models.SearchHit, error) {
	stateDir, err := a.stateDir(containerTag)
	if err != nil {
		return nil, err
	}

	stdout, err := a.run(ctx, "search", "--state", stateDir, "--query", query, "--limit", strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}

	var hits []models.SearchHit
	if err := json.Unmarshal(stdout, &hits); err != nil {
		return nil, fmt.Errorf("parsing search output: %w", err)
	}
	return hits, nil
}

// Clear removes the container tag's state directory. Removing a directory
// that does not exist is not an error.
func (a *Adapter) Clear(_ context.Context, containerTag string) error {
	stateDir, err := a.stateDir(containerTag)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(stateDir); err != nil {
		return fmt.Errorf("clearing state for %s: %w", containerTag, err)
	}
	return nil
}

func (a *Adapter) stateDir(containerTag string) (string, error) {
	if len(a.commandBase) == 0 {
		return "", fmt.Errorf("subprocess adapter: not initialized")
	}
	safe := safeTagRe.ReplaceAllString(containerTag, "-")
	if safe == "" {
		safe = "default"
	}
	return filepath.Join(a.stateRoot, safe), nil
}

// run executes one tool invocation with a wall-clock timeout. On timeout or
// cancellation the whole process group gets SIGTERM, then SIGKILL after the
// grace period.
func (a *Adapter) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.commandTimeout)
	defer cancel()

	argv := append(append([]string{}, a.commandBase[1:]...), args...)
	cmd := exec.CommandContext(ctx, a.commandBase[0], argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Env = os.Environ()
	for k, v := range a.extraEnv {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = a.gracePeriod

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %s: %w", a.commandTimeout, context.DeadlineExceeded)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, &adapter.CommandError{
				Command:  fmt.Sprintf("%s %s", a.commandBase[0], joinArgs(argv)),
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return nil, fmt.Errorf("executing command: %w", err)
	}

	return stdout.Bytes(), nil
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
