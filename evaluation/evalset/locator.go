//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package evalset

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSuffix is the suffix of eval set files.
const FileSuffix = ".evalset.json"

// Locator maps eval set ids to files.
type Locator interface {
	// Build builds the path of an eval set file for the given appName and evalSetID.
	Build(baseDir, appName, evalSetID string) string
	// List lists the sorted eval set ids of appName. A missing app directory
	// yields an empty list.
	List(baseDir, appName string) ([]string, error)
}

type locator struct{}

func (locator) Build(baseDir, appName, evalSetID string) string {
	return filepath.Join(baseDir, appName, evalSetID+FileSuffix)
}

func (locator) List(baseDir, appName string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, appName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), FileSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}
