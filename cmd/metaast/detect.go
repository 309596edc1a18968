package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// ErrUnknownLanguage is returned when a source language cannot be resolved.
var ErrUnknownLanguage = errors.New("cannot determine language")

// parseLanguage accepts language names and common file extensions.
func parseLanguage(name string) (meta.Language, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "python", "py":
		return meta.LanguagePython, nil
	case "elixir", "ex", "exs":
		return meta.LanguageElixir, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
}

// detectLanguage resolves the language of in. A forced name wins; otherwise
// enry classifies the file by name and content. Stdin needs a forced name.
func detectLanguage(in input, forced string) (meta.Language, error) {
	if forced != "" {
		return parseLanguage(forced)
	}

	if in.path == "" {
		return "", fmt.Errorf("%w: %s (pass --language)", ErrUnknownLanguage, in.label)
	}

	detected := enry.GetLanguage(filepath.Base(in.path), in.content)

	language, err := parseLanguage(detected)
	if err != nil {
		return "", fmt.Errorf("%w: %s looks like %q", ErrUnknownLanguage, in.label, detected)
	}

	return language, nil
}

// sourcesOf reads paths and resolves each language.
func sourcesOf(inputs []input, forced string) ([]adapter.Source, error) {
	sources := make([]adapter.Source, 0, len(inputs))

	for _, in := range inputs {
		language, err := detectLanguage(in, forced)
		if err != nil {
			return nil, err
		}

		sources = append(sources, adapter.Source{Name: in.label, Language: language, Text: string(in.content)})
	}

	return sources, nil
}
