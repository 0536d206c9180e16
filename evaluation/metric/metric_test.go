//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMetrics(t *testing.T) {
	metrics := DefaultMetrics()
	assert.Len(t, metrics, 2)
	assert.Equal(t, ToolTrajectoryAvgScore, metrics[0].MetricName)
	assert.Equal(t, 1.0, metrics[0].Threshold)
	assert.Equal(t, ResponseMatchScore, metrics[1].MetricName)
	assert.Equal(t, 0.8, metrics[1].Threshold)

	metrics[0].Threshold = 0
	assert.Equal(t, 1.0, DefaultMetrics()[0].Threshold)
}
