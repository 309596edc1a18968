package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/metaast/pkg/textutil"
)

// stdinPath names standard input on the command line.
const stdinPath = "-"

var (
	// ErrDirectoryPath indicates a file operation was attempted on a directory.
	ErrDirectoryPath = errors.New("path points to a directory")
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
	// ErrBinaryInput indicates an input is not source text.
	ErrBinaryInput = errors.New("input is binary")
)

// input is one file (or stdin) read into memory.
type input struct {
	label   string
	path    string
	content []byte
}

// readInputs reads every path; "-" reads stdin once. No paths means stdin.
// Content is normalized to LF line endings without a byte order mark.
func readInputs(paths []string, stdin io.Reader) ([]input, error) {
	if len(paths) == 0 {
		paths = []string{stdinPath}
	}

	inputs := make([]input, 0, len(paths))
	stdinRead := false

	for _, path := range paths {
		if path == stdinPath {
			if stdinRead {
				continue
			}

			content, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}

			stdinRead = true

			in, err := newInput("stdin", "", content)
			if err != nil {
				return nil, err
			}

			inputs = append(inputs, in)

			continue
		}

		content, resolved, err := safeReadFile(path)
		if err != nil {
			return nil, err
		}

		in, err := newInput(path, resolved, content)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, in)
	}

	return inputs, nil
}

func newInput(label, path string, content []byte) (input, error) {
	if textutil.IsBinary(content) {
		return input{}, fmt.Errorf("%w: %s", ErrBinaryInput, label)
	}

	return input{label: label, path: path, content: textutil.Normalize(content)}, nil
}

func safeReadFile(path string) (content []byte, resolvedPath string, err error) {
	resolvedPath, err = resolveUserFilePath(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	//nolint:gosec // resolvedPath is normalized and type checked in resolveUserFilePath.
	content, err = os.ReadFile(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", resolvedPath, err)
	}

	return content, resolvedPath, nil
}

func resolveUserFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", absPath, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectoryPath, absPath)
	}

	return absPath, nil
}

// sanitizeForTerminal flattens whitespace and drops control characters so
// that messages quoting source text cannot move the cursor.
func sanitizeForTerminal(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, text)
}
