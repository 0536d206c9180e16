//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package epochtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(EpochTime{})
	require.NoError(t, err)
	assert.Equal(t, "0", string(data))

	data, err = json.Marshal(New(time.Unix(1700000000, 500000000)))
	require.NoError(t, err)
	assert.Equal(t, "1700000000.5", string(data))
}

func TestUnmarshalJSON(t *testing.T) {
	var ts EpochTime
	require.NoError(t, json.Unmarshal([]byte("321.654"), &ts))
	assert.WithinDuration(t, time.Unix(321, 654000000), ts.Time, time.Microsecond)

	require.NoError(t, json.Unmarshal([]byte("0"), &ts))
	assert.True(t, ts.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "1700000000", FormatID(time.Unix(1700000000, 0)))
	assert.Equal(t, "1700000000_25", FormatID(time.Unix(1700000000, 250000000)))
}
