package verifier

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuriyGuts/hammurabi/internal/model"
)

// ExactBytes compares the two files byte for byte after normalizing
// trailing newlines.
type ExactBytes struct{}

func (ExactBytes) Verify(expectedPath, actualPath string) (model.Verdict, error) {
	expected, actual, err := readBoth(expectedPath, actualPath)
	if err != nil {
		return model.Verdict{}, err
	}

	expected = normalizeTrailingNewline(expected)
	actual = normalizeTrailingNewline(actual)
	if !bytes.Equal(expected, actual) {
		return model.Verdict{
			Detail: fmt.Sprintf("Expected: %s, Actual: %s", preview(expected), preview(actual)),
		}, nil
	}
	return model.Verdict{Correct: true}, nil
}

// IntegerSequence tokenizes both files by whitespace and compares the
// resulting integer sequences element-wise.
type IntegerSequence struct{}

func (IntegerSequence) Verify(expectedPath, actualPath string) (model.Verdict, error) {
	return verifyTokens(expectedPath, actualPath, func(expected, actual string, index int) (bool, model.Verdict) {
		want, err := strconv.ParseInt(expected, 10, 64)
		if err != nil {
			return false, formatVerdict("expected token %d is not an integer: %q", index+1, expected)
		}
		got, err := strconv.ParseInt(actual, 10, 64)
		if err != nil {
			return false, formatVerdict("token %d is not an integer: %q", index+1, actual)
		}
		if want != got {
			return false, mismatchVerdict(index, expected, actual)
		}
		return true, model.Verdict{}
	})
}

// FloatSequence compares whitespace-separated numbers with a combined
// absolute/relative tolerance: |a-b| <= max(abs_tol, rel_tol*|b|).
type FloatSequence struct {
	AbsTol float64
	RelTol float64
}

func (v FloatSequence) Verify(expectedPath, actualPath string) (model.Verdict, error) {
	absTol, relTol := v.AbsTol, v.RelTol
	if absTol == 0 {
		absTol = 1e-6
	}
	if relTol == 0 {
		relTol = 1e-6
	}
	return verifyTokens(expectedPath, actualPath, func(expected, actual string, index int) (bool, model.Verdict) {
		want, err := strconv.ParseFloat(expected, 64)
		if err != nil || math.IsNaN(want) || math.IsInf(want, 0) {
			return false, formatVerdict("expected token %d is not a finite number: %q", index+1, expected)
		}
		got, err := strconv.ParseFloat(actual, 64)
		if err != nil || math.IsNaN(got) || math.IsInf(got, 0) {
			return false, formatVerdict("token %d is not a finite number: %q", index+1, actual)
		}
		if math.Abs(got-want) > math.Max(absTol, relTol*math.Abs(want)) {
			return false, mismatchVerdict(index, expected, actual)
		}
		return true, model.Verdict{}
	})
}

// WordSequence compares whitespace-separated tokens as case-sensitive
// strings.
type WordSequence struct{}

func (WordSequence) Verify(expectedPath, actualPath string) (model.Verdict, error) {
	return verifyTokens(expectedPath, actualPath, func(expected, actual string, index int) (bool, model.Verdict) {
		if expected != actual {
			return false, mismatchVerdict(index, expected, actual)
		}
		return true, model.Verdict{}
	})
}

func verifyTokens(expectedPath, actualPath string, compare func(expected, actual string, index int) (bool, model.Verdict)) (model.Verdict, error) {
	expected, actual, err := readBoth(expectedPath, actualPath)
	if err != nil {
		return model.Verdict{}, err
	}

	expectedTokens := strings.Fields(string(expected))
	actualTokens := strings.Fields(string(actual))
	if len(actualTokens) != len(expectedTokens) {
		return formatVerdict("expected %d tokens, got %d", len(expectedTokens), len(actualTokens)), nil
	}

	for i := range expectedTokens {
		if ok, verdict := compare(expectedTokens[i], actualTokens[i], i); !ok {
			return verdict, nil
		}
	}
	return model.Verdict{Correct: true}, nil
}

func readBoth(expectedPath, actualPath string) (expected, actual []byte, err error) {
	expected, err = os.ReadFile(expectedPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read expected answer: %w", err)
	}
	actual, err = os.ReadFile(actualPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read actual output: %w", err)
	}
	return expected, actual, nil
}

func normalizeTrailingNewline(data []byte) []byte {
	return bytes.TrimRight(data, "\r\n")
}

func mismatchVerdict(index int, expected, actual string) model.Verdict {
	return model.Verdict{
		Detail: fmt.Sprintf("token %d mismatch: expected %q, actual %q", index+1, expected, actual),
	}
}

func formatVerdict(format string, args ...any) model.Verdict {
	return model.Verdict{Detail: fmt.Sprintf(format, args...), FormatIssue: true}
}

const previewLimit = 256

func preview(data []byte) string {
	s := string(data)
	if len(s) > previewLimit {
		s = s[:previewLimit] + "..."
	}
	return strconv.Quote(s)
}
