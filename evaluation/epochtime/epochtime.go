//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package epochtime encodes timestamps as fractional unix seconds in JSON.
package epochtime

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const nanosecondsPerSecond = float64(time.Second)

// EpochTime is a time.Time that marshals to a JSON number of unix seconds.
type EpochTime struct{ time.Time }

// New wraps t.
func New(t time.Time) *EpochTime {
	return &EpochTime{Time: t}
}

// Seconds returns t as fractional unix seconds.
func Seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/nanosecondsPerSecond
}

// FormatID renders t as unix seconds usable inside file names: the
// fractional part is kept only when present and its dot becomes "_".
func FormatID(t time.Time) string {
	s := strconv.FormatFloat(Seconds(t), 'f', -1, 64)
	return strings.ReplaceAll(s, ".", "_")
}

// MarshalJSON implements json.Marshaler. The zero time encodes as 0.
func (t EpochTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(Seconds(t.Time))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *EpochTime) UnmarshalJSON(b []byte) error {
	var unixSeconds float64
	if err := json.Unmarshal(b, &unixSeconds); err != nil {
		return err
	}
	if unixSeconds == 0 {
		t.Time = time.Time{}
		return nil
	}
	t.Time = time.Unix(0, int64(unixSeconds*nanosecondsPerSecond)).UTC()
	return nil
}
