//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/metric"
)

type caseParam struct {
	idx      int
	ctx      context.Context
	appName  string
	setID    string
	evalCase *evalset.EvalCase
	metrics  []*metric.EvalMetric
	e        *Evaluator
	results  []*evalresult.EvalCaseResult
	wg       *sync.WaitGroup
}

func (p *caseParam) reset() {
	*p = caseParam{}
}

var caseParamPool = &sync.Pool{
	New: func() any { return new(caseParam) },
}

func newCasePool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*caseParam)
		if !ok {
			panic("eval case pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			caseParamPool.Put(param)
		}()
		param.results[param.idx] = param.e.runCase(param.ctx, param.appName, param.setID, param.evalCase, param.metrics)
	})
	if err != nil {
		return nil, fmt.Errorf("create eval case pool: %w", err)
	}
	return pool, nil
}
