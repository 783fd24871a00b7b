package verifier_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuriyGuts/hammurabi/internal/verifier"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExactBytes(t *testing.T) {
	dir := t.TempDir()
	expected := writeFile(t, dir, "expected.out", "Hello world!\nHello world!\nHello world!")

	v := verifier.ExactBytes{}

	verdict, err := v.Verify(expected, writeFile(t, dir, "same.out", "Hello world!\nHello world!\nHello world!"))
	require.NoError(t, err)
	require.True(t, verdict.Correct)

	// A single trailing newline is normalized away.
	verdict, err = v.Verify(expected, writeFile(t, dir, "trailing.out", "Hello world!\nHello world!\nHello world!\n"))
	require.NoError(t, err)
	require.True(t, verdict.Correct)

	verdict, err = v.Verify(expected, writeFile(t, dir, "extra.out", "Hello world!\nHello world!\nHello world!\nHello world!"))
	require.NoError(t, err)
	require.False(t, verdict.Correct)
	require.NotEmpty(t, verdict.Detail)
}

func TestExactBytesSymmetricReflexive(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.out", "42\n")
	b := writeFile(t, dir, "b.out", "42")

	v := verifier.ExactBytes{}

	verdict, err := v.Verify(a, a)
	require.NoError(t, err)
	require.True(t, verdict.Correct)

	ab, err := v.Verify(a, b)
	require.NoError(t, err)
	ba, err := v.Verify(b, a)
	require.NoError(t, err)
	require.Equal(t, ab.Correct, ba.Correct)
}

func TestIntegerSequence(t *testing.T) {
	dir := t.TempDir()
	expected := writeFile(t, dir, "expected.out", "1 2 3\n4 5\n")

	v := verifier.IntegerSequence{}

	verdict, err := v.Verify(expected, writeFile(t, dir, "ok.out", "1 2 3 4 5"))
	require.NoError(t, err)
	require.True(t, verdict.Correct)

	// Trailing newline never matters for tokenized comparison.
	verdict, err = v.Verify(expected, writeFile(t, dir, "newline.out", "1 2 3\n4 5\n\n"))
	require.NoError(t, err)
	require.True(t, verdict.Correct)

	verdict, err = v.Verify(expected, writeFile(t, dir, "wrong.out", "1 2 3 4 6"))
	require.NoError(t, err)
	require.False(t, verdict.Correct)
	require.False(t, verdict.FormatIssue)

	verdict, err = v.Verify(expected, writeFile(t, dir, "nonint.out", "1 2 3 4 x"))
	require.NoError(t, err)
	require.False(t, verdict.Correct)
	require.True(t, verdict.FormatIssue)

	verdict, err = v.Verify(expected, writeFile(t, dir, "short.out", "1 2 3 4"))
	require.NoError(t, err)
	require.False(t, verdict.Correct)
	require.True(t, verdict.FormatIssue)
}

func TestFloatSequenceTolerance(t *testing.T) {
	dir := t.TempDir()
	expected := writeFile(t, dir, "expected.out", "0.3333333\n")

	v := verifier.FloatSequence{AbsTol: 1e-6, RelTol: 1e-6}

	verdict, err := v.Verify(expected, writeFile(t, dir, "close.out", "0.3333334\n"))
	require.NoError(t, err)
	require.True(t, verdict.Correct)

	verdict, err = v.Verify(expected, writeFile(t, dir, "far.out", "0.334\n"))
	require.NoError(t, err)
	require.False(t, verdict.Correct)

	verdict, err = v.Verify(expected, writeFile(t, dir, "nan.out", "NaN\n"))
	require.NoError(t, err)
	require.False(t, verdict.Correct)
	require.True(t, verdict.FormatIssue)
}

func TestFloatSequenceRelativeTolerance(t *testing.T) {
	dir := t.TempDir()
	expected := writeFile(t, dir, "expected.out", "1000000\n")

	v := verifier.FloatSequence{AbsTol: 1e-6, RelTol: 1e-6}

	// Off by 0.5 but within 1e-6 relative.
	verdict, err := v.Verify(expected, writeFile(t, dir, "close.out", "1000000.5\n"))
	require.NoError(t, err)
	require.True(t, verdict.Correct)
}

func TestWordSequence(t *testing.T) {
	dir := t.TempDir()
	expected := writeFile(t, dir, "expected.out", "YES NO\nYES\n")

	v := verifier.WordSequence{}

	verdict, err := v.Verify(expected, writeFile(t, dir, "ok.out", "YES   NO YES"))
	require.NoError(t, err)
	require.True(t, verdict.Correct)

	// Token comparison is case-sensitive.
	verdict, err = v.Verify(expected, writeFile(t, dir, "case.out", "yes no yes"))
	require.NoError(t, err)
	require.False(t, verdict.Correct)
}

func TestRegistry(t *testing.T) {
	r := verifier.NewRegistry()

	require.ElementsMatch(t,
		[]string{"ExactBytes", "IntegerSequence", "FloatSequence", "WordSequence"},
		r.Names())

	_, err := r.Get("ExactBytes", verifier.Options{})
	require.NoError(t, err)

	_, err = r.Get("NoSuchVerifier", verifier.Options{})
	require.Error(t, err)
}
