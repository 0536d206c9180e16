//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package response

import (
	"regexp"
	"strings"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// Tokenize lowercases text, turns every run of characters outside [a-z0-9]
// into a separator and splits it.
func Tokenize(text string) []string {
	return strings.Fields(nonAlphaNum.ReplaceAllString(strings.ToLower(text), " "))
}

// Rouge1F1 returns the harmonic mean of unigram precision and recall of
// prediction against target. Either side without tokens scores 0.
func Rouge1F1(target, prediction string) float64 {
	targetTokens := Tokenize(target)
	predTokens := Tokenize(prediction)
	if len(targetTokens) == 0 || len(predTokens) == 0 {
		return 0
	}
	counts := make(map[string]int, len(targetTokens))
	for _, tok := range targetTokens {
		counts[tok]++
	}
	overlap := 0
	for _, tok := range predTokens {
		if counts[tok] > 0 {
			counts[tok]--
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	precision := float64(overlap) / float64(len(predTokens))
	recall := float64(overlap) / float64(len(targetTokens))
	return 2 * precision * recall / (precision + recall)
}
