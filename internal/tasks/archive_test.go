package tasks

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/stretchr/testify/require"
)

func fakeExecSuccess(t *testing.T) execCommandFunc {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "true")
	}
}

func fakeExecFailure(t *testing.T) execCommandFunc {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	}
}

func TestBuildRejectsBothFilesAndDirectory(t *testing.T) {
	b := NewArchiveBuilder(t.TempDir(), "7z")
	_, err := b.Build(context.Background(), ArchiveInput{
		Files:      []string{"a.txt"},
		Directory:  "sub",
		OutputPath: "out",
	}, func(int) {})
	require.True(t, hwerr.Is(err, hwerr.KindValidation))
}

func TestBuildRejectsNeitherFilesNorDirectory(t *testing.T) {
	b := NewArchiveBuilder(t.TempDir(), "7z")
	_, err := b.Build(context.Background(), ArchiveInput{OutputPath: "out"}, func(int) {})
	require.True(t, hwerr.Is(err, hwerr.KindValidation))
}

func TestBuildRejectsPathTraversal(t *testing.T) {
	b := NewArchiveBuilder(t.TempDir(), "7z")
	_, err := b.Build(context.Background(), ArchiveInput{
		Files:      []string{"a.txt"},
		OutputPath: "../../etc/passwd",
	}, func(int) {})
	require.True(t, hwerr.Is(err, hwerr.KindValidation))
}

func TestBuildRejectsFilesEscapingDataRoot(t *testing.T) {
	b := NewArchiveBuilder(t.TempDir(), "7z")
	_, err := b.Build(context.Background(), ArchiveInput{
		Files:      []string{"/etc/passwd"},
		OutputPath: "out",
	}, func(int) {})
	require.True(t, hwerr.Is(err, hwerr.KindValidation))
}

func TestBuildRejectsDirectoryEscapingDataRoot(t *testing.T) {
	b := NewArchiveBuilder(t.TempDir(), "7z")
	_, err := b.Build(context.Background(), ArchiveInput{
		Directory:  "../outside",
		OutputPath: "out",
	}, func(int) {})
	require.True(t, hwerr.Is(err, hwerr.KindValidation))
}

func TestBuildInvokesArchiverAndReportsProgress(t *testing.T) {
	root := t.TempDir()
	b := NewArchiveBuilder(root, "7z")
	b.SetExecCommand(fakeExecSuccess(t))

	var seen []int
	out, err := b.Build(context.Background(), ArchiveInput{
		Files:      []string{"a.txt", "b.txt"},
		OutputPath: "bundle",
	}, func(p int) { seen = append(seen, p) })

	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "bundle.7z"), out.ArchivePath)
	require.Equal(t, []int{0, 100}, seen)
}

func TestBuildPropagatesArchiverFailure(t *testing.T) {
	b := NewArchiveBuilder(t.TempDir(), "7z")
	b.SetExecCommand(fakeExecFailure(t))

	_, err := b.Build(context.Background(), ArchiveInput{
		Files:      []string{"a.txt"},
		OutputPath: "bundle",
	}, func(int) {})
	require.True(t, hwerr.Is(err, hwerr.KindInternal))
}

func TestBuildAppliesEncryptionFlagsWhenPasswordSet(t *testing.T) {
	root := t.TempDir()
	b := NewArchiveBuilder(root, "7z")

	var captured []string
	b.SetExecCommand(func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		captured = arg
		return exec.CommandContext(ctx, "true")
	})

	_, err := b.Build(context.Background(), ArchiveInput{
		Files:      []string{"a.txt"},
		Password:   "s3cret",
		OutputPath: "bundle",
	}, func(int) {})
	require.NoError(t, err)
	require.Contains(t, captured, "-mhe=on")
	require.Contains(t, captured, "-ps3cret")
}
