package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/apestel/hardwire/internal/storage"
)

// ArchiveTaskType is the only task_type understood today.
const ArchiveTaskType = "CreateArchive"

// ArchiveInput is the JSON-encoded input_data payload for a
// CreateArchive task. Exactly one of Files or Directory must be set.
type ArchiveInput struct {
	Files      []string `json:"files,omitempty"`
	Directory  string   `json:"directory,omitempty"`
	Password   string   `json:"password,omitempty"`
	OutputPath string   `json:"output_path"`
}

// ArchiveOutput is the JSON-encoded output_data payload of a
// completed CreateArchive task.
type ArchiveOutput struct {
	ArchivePath string `json:"archive_path"`
}

// execCommandFunc allows tests to substitute a fake 7z invocation,
// mirroring the teacher's security.Scanner injection point.
type execCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

func defaultExecCommand(ctx context.Context, name string, arg ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, arg...)
}

// ArchiveBuilder shells out to the 7z CLI to build LZMA2 archives,
// optionally AES-256 encrypted, from a set of files under the data
// root. No library in the corpus writes password-protected 7z
// archives in pure Go, so this follows the teacher's own precedent of
// wrapping an external binary (internal/security/scanner.go's
// execCommandFunc) rather than fabricating a dependency.
type ArchiveBuilder struct {
	dataRoot    string
	binary      string
	execCommand execCommandFunc
}

// NewArchiveBuilder constructs a builder rooted at dataRoot, invoking
// the given 7z binary name (expected on PATH).
func NewArchiveBuilder(dataRoot, binary string) *ArchiveBuilder {
	if binary == "" {
		binary = "7z"
	}
	return &ArchiveBuilder{dataRoot: dataRoot, binary: binary, execCommand: defaultExecCommand}
}

// SetExecCommand overrides the command constructor, for tests.
func (b *ArchiveBuilder) SetExecCommand(fn execCommandFunc) {
	b.execCommand = fn
}

// Runner adapts Build to the tasks.Runner signature for Manager.Register.
func (b *ArchiveBuilder) Runner() Runner {
	return func(ctx context.Context, task *storage.Task, report func(int)) (string, error) {
		var input ArchiveInput
		if err := json.Unmarshal([]byte(task.InputData), &input); err != nil {
			return "", hwerr.Wrap(hwerr.KindValidation, "malformed archive task input", err)
		}
		out, err := b.Build(ctx, input, report)
		if err != nil {
			return "", err
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return "", hwerr.Wrap(hwerr.KindInternal, "encode archive output", err)
		}
		return string(payload), nil
	}
}

// resolveOutput canonicalises output_path relative to the data root
// and rejects any path that escapes it, per the task's path-traversal
// invariant.
func (b *ArchiveBuilder) resolveOutput(outputPath string) (string, error) {
	if outputPath == "" {
		return "", hwerr.New(hwerr.KindValidation, "output_path is required")
	}
	if !strings.HasSuffix(outputPath, ".7z") {
		outputPath += ".7z"
	}

	candidate, err := b.resolveUnderRoot(outputPath)
	if err != nil {
		return "", hwerr.New(hwerr.KindValidation, "output_path escapes data root")
	}
	return candidate, nil
}

// resolveUnderRoot canonicalises path (absolute or relative to the
// data root) and rejects it if it resolves outside dataRoot.
func (b *ArchiveBuilder) resolveUnderRoot(path string) (string, error) {
	root, err := filepath.Abs(b.dataRoot)
	if err != nil {
		return "", hwerr.Wrap(hwerr.KindInternal, "resolve data root", err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate, err = filepath.Abs(candidate)
	if err != nil {
		return "", hwerr.Wrap(hwerr.KindInternal, "resolve path", err)
	}

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", hwerr.New(hwerr.KindValidation, "path escapes data root: "+path)
	}
	return candidate, nil
}

// Build invokes 7z to produce the archive and reports coarse progress
// (the 7z CLI does not expose a machine-parseable progress stream, so
// this reports 0 at start and 100 on success, matching the
// best-effort progress contract).
func (b *ArchiveBuilder) Build(ctx context.Context, input ArchiveInput, report func(int)) (*ArchiveOutput, error) {
	hasFiles := len(input.Files) > 0
	hasDir := input.Directory != ""
	if hasFiles == hasDir {
		return nil, hwerr.New(hwerr.KindValidation, "exactly one of files or directory must be provided")
	}

	output, err := b.resolveOutput(input.OutputPath)
	if err != nil {
		return nil, err
	}

	var sources []string
	if hasDir {
		dir, err := b.resolveUnderRoot(input.Directory)
		if err != nil {
			return nil, hwerr.New(hwerr.KindValidation, "directory escapes data root")
		}
		sources = []string{dir}
	} else {
		sources = make([]string, len(input.Files))
		for i, f := range input.Files {
			resolved, err := b.resolveUnderRoot(f)
			if err != nil {
				return nil, hwerr.New(hwerr.KindValidation, "files[] entry escapes data root: "+f)
			}
			sources[i] = resolved
		}
	}

	args := []string{"a", "-t7z", "-mx=9", "-m0=lzma2"}
	if input.Password != "" {
		args = append(args, "-mhe=on", fmt.Sprintf("-p%s", input.Password))
	}
	args = append(args, output)
	args = append(args, sources...)

	report(0)

	cmd := b.execCommand(ctx, b.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, hwerr.Wrap(hwerr.KindInternal, "7z archive build failed: "+stderr.String(), err)
	}

	report(100)
	return &ArchiveOutput{ArchivePath: output}, nil
}
