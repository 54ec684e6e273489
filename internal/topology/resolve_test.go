package topology

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
)

const (
	fixtureRoot     = "/projects"
	fixtureMask     = "/projects/ABC123"
	fixtureRevision = "/projects/ABC123/REV02"
	fixtureDataprep = "/projects/ABC123/REV02/dataprep"
	fixtureFinal    = "/projects/ABC123/REV02/dataprep/ABC123_MS_05Mar26"
)

func memTree(t *testing.T, dirs ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range dirs {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return fs
}

type recordingChooser struct {
	calls  [][]string
	titles []string
	pick   func([]string) string
	err    error
}

func (c *recordingChooser) Choose(_ context.Context, title string, candidates []string) (string, error) {
	c.titles = append(c.titles, title)
	c.calls = append(c.calls, append([]string(nil), candidates...))
	if c.err != nil {
		return "", c.err
	}
	if c.pick != nil {
		return c.pick(candidates), nil
	}
	return candidates[0], nil
}

var ignoreLaunch = cmpopts.IgnoreFields(Topology{}, "LaunchDir", "Launch")

func TestResolveRoundTripFromEveryLevel(t *testing.T) {
	fs := memTree(t, fixtureFinal, filepath.Join(fixtureRevision, "docs"))
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	want := Topology{
		MaskName:  fixtureMask,
		Revision:  fixtureRevision,
		Dataprep:  fixtureDataprep,
		FinalMask: fixtureFinal,
	}
	starts := map[Role]string{
		RoleMaskName:  fixtureMask,
		RoleRevision:  fixtureRevision,
		RoleDataprep:  fixtureDataprep,
		RoleFinalMask: fixtureFinal,
	}
	for role, start := range starts {
		got, err := resolver.Resolve(context.Background(), start)
		if err != nil {
			t.Fatalf("Resolve from %s: %v", role, err)
		}
		if diff := cmp.Diff(want, got, ignoreLaunch); diff != "" {
			t.Fatalf("Resolve from %s mismatch (-want +got):\n%s", role, diff)
		}
		if got.Launch != role {
			t.Fatalf("expected launch role %s, got %s", role, got.Launch)
		}
		if err := got.Validate(); err != nil {
			t.Fatalf("Validate from %s: %v", role, err)
		}
	}
}

func TestResolveFallsBackToSecretWhenNoFinalMask(t *testing.T) {
	fs := memTree(t, filepath.Join(fixtureDataprep, "secret"), filepath.Join(fixtureDataprep, "logs"))
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	for _, start := range []string{fixtureMask, fixtureRevision, fixtureDataprep} {
		got, err := resolver.Resolve(context.Background(), start)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", start, err)
		}
		wantFinal := filepath.Join(fixtureDataprep, SecretDirName)
		if got.FinalMask != wantFinal {
			t.Fatalf("expected final mask %s, got %s", wantFinal, got.FinalMask)
		}
		if !got.SyntheticFinalMask {
			t.Fatal("expected synthetic final mask flag")
		}
		if err := got.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}
}

func TestResolveSecretFallbackDoesNotNeedSecretOnDisk(t *testing.T) {
	fs := memTree(t, fixtureDataprep)
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	got, err := resolver.Resolve(context.Background(), fixtureDataprep)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.FinalMask != filepath.Join(fixtureDataprep, "secret") {
		t.Fatalf("unexpected final mask %s", got.FinalMask)
	}
}

func TestResolveAdoptsChooserPickForMultipleFinalMasks(t *testing.T) {
	second := filepath.Join(fixtureDataprep, "ABC123_MS_06Mar26")
	fs := memTree(t, fixtureFinal, second)

	for _, start := range []string{fixtureMask, fixtureRevision, fixtureDataprep, fixtureFinal} {
		chooser := &recordingChooser{pick: func(c []string) string { return c[len(c)-1] }}
		resolver := NewResolver(testPatterns(t), chooser, WithFS(fs))

		got, err := resolver.Resolve(context.Background(), start)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", start, err)
		}
		if len(chooser.calls) != 1 {
			t.Fatalf("expected exactly one disambiguation from %s, got %d", start, len(chooser.calls))
		}
		wantCandidates := []string{fixtureFinal, second}
		if diff := cmp.Diff(wantCandidates, chooser.calls[0]); diff != "" {
			t.Fatalf("candidate list mismatch (-want +got):\n%s", diff)
		}
		if got.FinalMask != second {
			t.Fatalf("expected chooser pick %s from %s, got %s", second, start, got.FinalMask)
		}
	}
}

func TestResolveAdoptsChooserPathVerbatim(t *testing.T) {
	fs := memTree(t, fixtureFinal, filepath.Join(fixtureDataprep, "ABC123_MS_07Mar26"))
	override := filepath.Join(fixtureDataprep, "ABC123_MS_07Mar26")
	chooser := &recordingChooser{pick: func([]string) string { return override + "/" }}
	resolver := NewResolver(testPatterns(t), chooser, WithFS(fs))

	got, err := resolver.Resolve(context.Background(), fixtureFinal)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.FinalMask != override {
		t.Fatalf("expected %s, got %s", override, got.FinalMask)
	}
}

func TestResolvePromptsForMultipleRevisions(t *testing.T) {
	other := filepath.Join(fixtureMask, "REV03")
	fs := memTree(t, fixtureFinal, filepath.Join(other, "dataprep"))
	chooser := &recordingChooser{pick: func(c []string) string { return c[1] }}
	resolver := NewResolver(testPatterns(t), chooser, WithFS(fs))

	got, err := resolver.Resolve(context.Background(), fixtureMask)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Revision != other {
		t.Fatalf("expected revision %s, got %s", other, got.Revision)
	}
	if !got.SyntheticFinalMask {
		t.Fatal("REV03 has no final mask folder; expected secret fallback")
	}
	if len(chooser.calls) != 1 || len(chooser.calls[0]) != 2 {
		t.Fatalf("expected one revision prompt with two candidates, got %v", chooser.calls)
	}
}

func TestResolveAmbiguousWithoutChooserFails(t *testing.T) {
	fs := memTree(t, fixtureFinal, filepath.Join(fixtureDataprep, "ABC123_MS_06Mar26"))
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	_, err := resolver.Resolve(context.Background(), fixtureDataprep)
	if !errors.Is(err, ErrAmbiguousCandidate) {
		t.Fatalf("expected ErrAmbiguousCandidate, got %v", err)
	}
}

func TestResolveChooserErrorIsFatal(t *testing.T) {
	fs := memTree(t, fixtureFinal, filepath.Join(fixtureDataprep, "ABC123_MS_06Mar26"))
	boom := errors.New("window closed")
	resolver := NewResolver(testPatterns(t), &recordingChooser{err: boom}, WithFS(fs))

	_, err := resolver.Resolve(context.Background(), fixtureDataprep)
	if !errors.Is(err, boom) {
		t.Fatalf("expected chooser error, got %v", err)
	}
}

func TestResolveUnrecognizedLaunchLocation(t *testing.T) {
	fs := memTree(t, fixtureFinal)
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	_, err := resolver.Resolve(context.Background(), fixtureRoot)
	if !errors.Is(err, ErrUnrecognizedLaunchLocation) {
		t.Fatalf("expected ErrUnrecognizedLaunchLocation, got %v", err)
	}
}

func TestResolveMissingDataprepIsFatal(t *testing.T) {
	fs := memTree(t, filepath.Join(fixtureRevision, "docs"))
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	for _, start := range []string{fixtureMask, fixtureRevision} {
		_, err := resolver.Resolve(context.Background(), start)
		if !errors.Is(err, ErrMissingExpectedSubdirectory) {
			t.Fatalf("Resolve(%s): expected ErrMissingExpectedSubdirectory, got %v", start, err)
		}
	}
}

func TestResolveMissingLaunchDirSurfacesFilesystemError(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	_, err := resolver.Resolve(context.Background(), fixtureRevision)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestResolveIgnoresFilesMatchingPatterns(t *testing.T) {
	fs := memTree(t, fixtureDataprep)
	if err := afero.WriteFile(fs, filepath.Join(fixtureDataprep, "ABC123_MS_notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	resolver := NewResolver(testPatterns(t), nil, WithFS(fs))

	got, err := resolver.Resolve(context.Background(), fixtureDataprep)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.SyntheticFinalMask {
		t.Fatalf("files must not count as final mask folders, got %s", got.FinalMask)
	}
}

func TestResolveOnHostFilesystem(t *testing.T) {
	base := t.TempDir()
	final := filepath.Join(base, "ABC123", "REV02", "dataprep", "ABC123_MS_05Mar26")
	if err := os.MkdirAll(final, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	resolver := NewResolver(testPatterns(t), nil)

	got, err := resolver.Resolve(context.Background(), filepath.Join(base, "ABC123"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.FinalMask != final {
		t.Fatalf("expected %s, got %s", final, got.FinalMask)
	}
}
