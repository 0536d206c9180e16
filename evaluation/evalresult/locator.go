//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package evalresult

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// FileSuffix is the suffix of eval set result files.
	FileSuffix = ".evalset_result.json"
	historyDir = ".adk"
	historySub = "eval_history"
)

// Locator maps eval set result ids to files.
type Locator interface {
	// Build builds the path of a result file.
	Build(baseDir, appName, evalSetResultID string) string
	// List returns the result ids of appName in lexical order. Nothing
	// stored yet, including no history directory, is an empty list.
	List(baseDir, appName string) ([]string, error)
}

type locator struct{}

// HistoryDir returns the directory holding the results of appName.
func HistoryDir(baseDir, appName string) string {
	return filepath.Join(baseDir, appName, historyDir, historySub)
}

func (locator) Build(baseDir, appName, evalSetResultID string) string {
	return filepath.Join(HistoryDir(baseDir, appName), evalSetResultID+FileSuffix)
}

func (locator) List(baseDir, appName string) ([]string, error) {
	dir := HistoryDir(baseDir, appName)
	matches, err := filepath.Glob(filepath.Join(dir, "*"+FileSuffix))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if fi, err := os.Stat(m); err != nil || fi.IsDir() {
			continue
		}
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), FileSuffix))
	}
	slices.Sort(ids)
	return ids, nil
}
