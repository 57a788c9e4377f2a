// SPDX-License-Identifier: AGPL-3.0-or-later

package effect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/modl-lang/modl/internal/eval"
)

const (
	fetchBodyLimit = 1 << 20
	listFilesLimit = 500
	grepMatchLimit = 200
)

func registerBuiltins(d *Dispatcher) {
	d.Register("print", opPrint)
	d.Register("fetch", opFetch)
	d.Register("read_file", opReadFile)
	d.Register("write_file", opWriteFile)
	d.Register("run_shell", opRunShell)
	d.Register("grep_file", opGrepFile)
	d.Register("stat_file", opStatFile)
	d.Register("read_lines", opReadLines)
	d.Register("list_files", opListFiles)
}

// opPrint writes the value to stdout and passes it through, so it can sit
// in the middle of an effect chain without changing the result.
func opPrint(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	v, ok := args["value"]
	if !ok {
		v = eval.Null{}
	}
	fmt.Println(eval.Format(v))
	return v, nil
}

func opFetch(ctx context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	url, ok := argString(args, "url")
	if !ok {
		return eval.ErrorValue("fetch: url is required"), nil
	}
	method, _ := argString(args, "method")
	if method == "" {
		method = "GET"
	}

	var body io.Reader
	if payload, ok := argString(args, "body"); ok {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return eval.ErrorValue("fetch: " + err.Error()), nil
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return eval.ErrorValue("fetch: " + err.Error()), nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return eval.ErrorValue("fetch: " + err.Error()), nil
	}

	return eval.NewRecord(
		eval.Field{Key: "status", Value: eval.Number(float64(resp.StatusCode))},
		eval.Field{Key: "body", Value: eval.String(string(data))},
	), nil
}

func opReadFile(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	path, ok := argString(args, "path")
	if !ok {
		return eval.ErrorValue("read_file: path is required"), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return eval.ErrorValue("read_file: " + err.Error()), nil
	}
	return eval.String(string(data)), nil
}

func opWriteFile(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	path, ok := argString(args, "path")
	if !ok {
		return eval.ErrorValue("write_file: path is required"), nil
	}
	content, _ := argString(args, "content")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return eval.ErrorValue("write_file: " + err.Error()), nil
	}
	return eval.NewRecord(
		eval.Field{Key: "path", Value: eval.String(path)},
		eval.Field{Key: "bytes", Value: eval.Number(float64(len(content)))},
	), nil
}

func opRunShell(ctx context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	command, ok := argString(args, "command")
	if !ok {
		return eval.ErrorValue("run_shell: command is required"), nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return eval.ErrorValue("run_shell: " + err.Error()), nil
		}
	}

	return eval.NewRecord(
		eval.Field{Key: "exit_code", Value: eval.Number(float64(exitCode))},
		eval.Field{Key: "stdout", Value: eval.String(stdout.String())},
		eval.Field{Key: "stderr", Value: eval.String(stderr.String())},
	), nil
}

func opGrepFile(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	path, ok := argString(args, "path")
	if !ok {
		return eval.ErrorValue("grep_file: path is required"), nil
	}
	pattern, ok := argString(args, "pattern")
	if !ok {
		return eval.ErrorValue("grep_file: pattern is required"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return eval.ErrorValue("grep_file: " + err.Error()), nil
	}

	var matches []eval.Value
	truncated := false
	for i, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, pattern) {
			continue
		}
		if len(matches) >= grepMatchLimit {
			truncated = true
			break
		}
		matches = append(matches, eval.NewRecord(
			eval.Field{Key: "line", Value: eval.Number(float64(i + 1))},
			eval.Field{Key: "text", Value: eval.String(line)},
		))
	}

	return eval.NewRecord(
		eval.Field{Key: "matches", Value: eval.List{Items: matches}},
		eval.Field{Key: "truncated", Value: eval.Bool(truncated)},
	), nil
}

func opStatFile(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	path, ok := argString(args, "path")
	if !ok {
		return eval.ErrorValue("stat_file: path is required"), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return eval.ErrorValue("stat_file: " + err.Error()), nil
	}

	lines := 0
	if !info.IsDir() {
		if data, err := os.ReadFile(path); err == nil {
			lines = bytes.Count(data, []byte{'\n'})
			if len(data) > 0 && data[len(data)-1] != '\n' {
				lines++
			}
		}
	}

	return eval.NewRecord(
		eval.Field{Key: "path", Value: eval.String(path)},
		eval.Field{Key: "size", Value: eval.Number(float64(info.Size()))},
		eval.Field{Key: "is_dir", Value: eval.Bool(info.IsDir())},
		eval.Field{Key: "lines", Value: eval.Number(float64(lines))},
	), nil
}

// opReadLines returns an inclusive 1-indexed line range.
func opReadLines(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	path, ok := argString(args, "path")
	if !ok {
		return eval.ErrorValue("read_lines: path is required"), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return eval.ErrorValue("read_lines: " + err.Error()), nil
	}

	lines := strings.Split(string(data), "\n")
	start := 1
	end := len(lines)
	if n, ok := argNumber(args, "start"); ok {
		start = int(n)
	}
	if n, ok := argNumber(args, "end"); ok {
		end = int(n)
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return eval.ErrorValue("read_lines: empty range"), nil
	}

	return eval.String(strings.Join(lines[start-1:end], "\n")), nil
}

// opListFiles walks a directory depth-first, skipping hidden directories.
// An optional pattern is matched against each base name.
func opListFiles(_ context.Context, args map[string]eval.Value, _ *Session) (eval.Value, error) {
	root, ok := argString(args, "path")
	if !ok {
		root = "."
	}
	pattern, hasPattern := argString(args, "pattern")
	if hasPattern {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return eval.ErrorValue("list_files: bad pattern " + pattern), nil
		}
	}

	var items []eval.Value
	truncated := false
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() && strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}
		if entry.IsDir() {
			return nil
		}
		if hasPattern {
			if matched, _ := filepath.Match(pattern, name); !matched {
				return nil
			}
		}
		if len(items) >= listFilesLimit {
			truncated = true
			return filepath.SkipAll
		}
		items = append(items, eval.String(path))
		return nil
	})
	if err != nil {
		return eval.ErrorValue("list_files: " + err.Error()), nil
	}

	return eval.NewRecord(
		eval.Field{Key: "files", Value: eval.List{Items: items}},
		eval.Field{Key: "truncated", Value: eval.Bool(truncated)},
	), nil
}
