// Package langdetect decides whether a file holds SourcePawn. The .inc
// extension is shared with PHP, Pawn, C++ and assembler includes, so
// extensions alone are not enough for workspace discovery.
package langdetect

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Language names returned by Detect.
const (
	langSourcePawn = "sourcepawn"
	langPHP        = "php"
	langAssembly   = "assembly"
	langPascal     = "pascal"
	langHTML       = "html"
	langText       = "text"
)

// candidates are the languages a SourcePawn file may be mistaken for.
var candidates = []string{"SourcePawn", "Pawn", "PHP", "C++", "C", "Assembly", "Pascal", "HTML"}

// Detect returns the language of a file, judged from its name and
// content. It returns "text" when nothing is recognized.
func Detect(path string, content []byte) string {
	if lang, safe := enry.GetLanguageByExtension(path); safe {
		return normalize(lang)
	}

	// Strategy 1: markers no other candidate uses.
	if lang := detectByPattern(content); lang != "" {
		return lang
	}

	// Strategy 2: the classifier, restricted to what the extension allows.
	langs := enry.GetLanguagesByExtension(filepath.Base(path), content, nil)
	if len(langs) == 0 {
		langs = candidates
	}
	if lang, safe := enry.GetLanguageByClassifier(content, langs); safe && lang != "" {
		return normalize(lang)
	}
	return langText
}

// IsSourcePawn reports whether a file with one of the configured source
// extensions should be analyzed. Only content recognized as another
// language is rejected: empty and unrecognized files are kept.
func IsSourcePawn(path string, content []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".sp") || len(bytes.TrimSpace(content)) == 0 {
		return true
	}
	switch Detect(path, content) {
	case langPHP, langHTML, langAssembly, langPascal:
		return false
	}
	return true
}

// detectByPattern checks for patterns that are highly indicative.
func detectByPattern(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return ""
	}
	if lang := detectPHP(trimmed); lang != "" {
		return lang
	}
	if lang := detectHTML(trimmed); lang != "" {
		return lang
	}
	return detectSourcePawn(string(content))
}

func detectPHP(trimmed []byte) string {
	if bytes.HasPrefix(trimmed, []byte("<?php")) || bytes.HasPrefix(trimmed, []byte("<?=")) {
		return langPHP
	}
	return ""
}

func detectHTML(trimmed []byte) string {
	lower := bytes.ToLower(trimmed)
	if bytes.Contains(lower, []byte("<!doctype html")) ||
		bytes.Contains(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<body>")) {
		return langHTML
	}
	return ""
}

// sourcePawnMarkers appear in SourceMod plugins and includes but not in
// the other candidates.
var sourcePawnMarkers = []string{
	"#include <sourcemod>",
	"#pragma newdecls",
	"#pragma semicolon",
	"public Plugin myinfo",
	"public Extension __ext_",
	"public SharedPlugin __pl_",
	"methodmap ",
	"enum struct ",
	"typeset ",
	"native ",
	"forward ",
}

func detectSourcePawn(text string) string {
	for _, marker := range sourcePawnMarkers {
		if strings.Contains(text, marker) {
			return langSourcePawn
		}
	}
	// Include guards as the SourceMod headers write them.
	if strings.Contains(text, "#if defined _") && strings.Contains(text, "#endinput") {
		return langSourcePawn
	}
	return ""
}

// normalize converts go-enry language names to lower case identifiers.
func normalize(lang string) string {
	return strings.ToLower(lang)
}
