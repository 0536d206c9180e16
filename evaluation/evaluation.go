//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package evaluation replays eval cases against the agent runner, scores
// them and records the results.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/epochtime"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/errs"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalresult"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/evalset"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/metric"
	"trpc.group/trpc-go/whisky-agent-go/evaluation/status"
	"trpc.group/trpc-go/whisky-agent-go/history"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/runner"
	"trpc.group/trpc-go/whisky-agent-go/session"
	atrace "trpc.group/trpc-go/whisky-agent-go/telemetry/trace"
)

// Evaluator runs eval sets.
type Evaluator struct {
	sets     evalset.Manager
	results  evalresult.Manager
	sessions session.Service
	runner   runner.Runner
	recorder *history.Recorder
	pool     *ants.PoolWithFunc
	opts     options
}

// New creates an evaluator. Eval turns are recorded in the interaction
// history of eval sessions only, never mirrored.
func New(sets evalset.Manager, results evalresult.Manager, sessions session.Service,
	r runner.Runner, opt ...Option) (*Evaluator, error) {
	switch {
	case sets == nil:
		return nil, errors.New("eval set manager is nil")
	case results == nil:
		return nil, errors.New("eval result manager is nil")
	case sessions == nil:
		return nil, errors.New("session service is nil")
	case r == nil:
		return nil, errors.New("runner is nil")
	}
	o := defaultOptions()
	for _, apply := range opt {
		apply(&o)
	}
	pool, err := newCasePool(o.parallelism)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		sets:     sets,
		results:  results,
		sessions: sessions,
		runner:   r,
		recorder: history.New(sessions),
		pool:     pool,
		opts:     o,
	}, nil
}

// Close releases the worker pool.
func (e *Evaluator) Close() error {
	e.pool.Release()
	return nil
}

// Run replays the cases named by evalIDs, or every case when evalIDs is
// empty, and saves the result. Unknown eval ids yield errs.ErrNotFound.
// metrics overrides the configured metrics when given.
func (e *Evaluator) Run(ctx context.Context, appName, evalSetID string, evalIDs []string,
	metrics ...*metric.EvalMetric) (*evalresult.EvalSetResult, error) {
	ctx, span := atrace.Tracer.Start(ctx, "eval_run")
	defer span.End()
	span.SetAttributes(
		attribute.String("eval.app_name", appName),
		attribute.String("eval.set_id", evalSetID),
	)

	set, err := e.sets.Get(ctx, appName, evalSetID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	cases, err := selectCases(set, evalIDs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(metrics) == 0 {
		metrics = e.opts.metrics
	}
	for _, m := range metrics {
		if _, err := e.opts.registry.Get(m.MetricName); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("metric %s: %w", m.MetricName, err)
		}
	}

	caseResults := e.runCases(ctx, appName, evalSetID, cases, metrics)
	result, err := e.results.Save(ctx, appName, evalSetID, caseResults)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("save eval set result: %w", err)
	}
	span.SetAttributes(attribute.String("eval.result_id", result.EvalSetResultID))
	return result, nil
}

func selectCases(set *evalset.EvalSet, evalIDs []string) ([]*evalset.EvalCase, error) {
	if len(evalIDs) == 0 {
		return set.EvalCases, nil
	}
	cases := make([]*evalset.EvalCase, 0, len(evalIDs))
	for _, id := range evalIDs {
		c := set.Case(id)
		if c == nil {
			return nil, fmt.Errorf("eval case %s in eval set %s: %w", id, set.EvalSetID, errs.ErrNotFound)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func (e *Evaluator) runCases(ctx context.Context, appName, setID string, cases []*evalset.EvalCase,
	metrics []*metric.EvalMetric) []*evalresult.EvalCaseResult {
	results := make([]*evalresult.EvalCaseResult, len(cases))
	var wg sync.WaitGroup
	for idx, evalCase := range cases {
		wg.Add(1)
		param := caseParamPool.Get().(*caseParam)
		param.idx = idx
		param.ctx = ctx
		param.appName = appName
		param.setID = setID
		param.evalCase = evalCase
		param.metrics = metrics
		param.e = e
		param.results = results
		param.wg = &wg
		if err := e.pool.Invoke(param); err != nil {
			wg.Done()
			param.reset()
			caseParamPool.Put(param)
			results[idx] = failedCaseResult(setID, evalCase, "", "",
				fmt.Errorf("submit eval case %s: %w", evalCase.EvalID, err))
		}
	}
	wg.Wait()
	return results
}

func (e *Evaluator) runCase(ctx context.Context, appName, setID string, evalCase *evalset.EvalCase,
	metrics []*metric.EvalMetric) *evalresult.EvalCaseResult {
	ctx, span := atrace.Tracer.Start(ctx, "eval_case")
	defer span.End()
	span.SetAttributes(attribute.String("eval.case_id", evalCase.EvalID))

	userID := e.opts.defaultUserID
	state := session.StateMap{}
	if in := evalCase.SessionInput; in != nil {
		if in.UserID != "" {
			userID = in.UserID
		}
		for k, v := range in.State {
			state[k] = session.CloneValue(v)
		}
	}
	key := session.Key{AppName: appName, UserID: userID, SessionID: e.opts.sessionIDSupplier(ctx)}
	if _, err := e.sessions.CreateSession(ctx, key, state); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return failedCaseResult(setID, evalCase, key.SessionID, userID, fmt.Errorf("create eval session: %w", err))
	}

	actuals := make([]*evalset.Invocation, 0, len(evalCase.Conversation))
	for _, expected := range evalCase.Conversation {
		actual, err := e.infer(ctx, key, expected)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			log.Warnf("eval case %s: inference failed: %v", evalCase.EvalID, err)
			return failedCaseResult(setID, evalCase, key.SessionID, userID, err)
		}
		actuals = append(actuals, actual)
	}

	result, err := e.score(ctx, actuals, evalCase.Conversation, metrics)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return failedCaseResult(setID, evalCase, key.SessionID, userID, err)
	}
	result.EvalSetID = setID
	result.EvalID = evalCase.EvalID
	result.SessionID = key.SessionID
	result.UserID = userID
	if sess, err := e.sessions.GetSession(ctx, key, session.WithEvalSessions()); err == nil {
		result.SessionDetails = sess
	}
	span.SetAttributes(attribute.String("eval.status", result.FinalEvalStatus.String()))
	return result
}

func (e *Evaluator) score(ctx context.Context, actuals, expecteds []*evalset.Invocation,
	metrics []*metric.EvalMetric) (*evalresult.EvalCaseResult, error) {
	perInvocation := make([]*evalresult.EvalMetricResultPerInvocation, len(actuals))
	for i := range actuals {
		perInvocation[i] = &evalresult.EvalMetricResultPerInvocation{
			ActualInvocation:   actuals[i],
			ExpectedInvocation: expecteds[i],
			EvalMetricResults:  make([]*evalresult.EvalMetricResult, 0, len(metrics)),
		}
	}
	overall := make([]*evalresult.EvalMetricResult, 0, len(metrics))
	statuses := make([]status.EvalStatus, 0, len(metrics))
	for _, m := range metrics {
		ev, err := e.opts.registry.Get(m.MetricName)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", m.MetricName, err)
		}
		r, err := ev.Evaluate(ctx, actuals, expecteds, m)
		if err != nil {
			return nil, fmt.Errorf("run metric %s: %w", m.MetricName, err)
		}
		for i, pr := range r.PerInvocationResults {
			if i >= len(perInvocation) {
				break
			}
			perInvocation[i].EvalMetricResults = append(perInvocation[i].EvalMetricResults, &evalresult.EvalMetricResult{
				MetricName: m.MetricName,
				Threshold:  m.Threshold,
				Score:      pr.Score,
				EvalStatus: pr.Status,
			})
		}
		overall = append(overall, &evalresult.EvalMetricResult{
			MetricName: m.MetricName,
			Threshold:  m.Threshold,
			Score:      r.OverallScore,
			EvalStatus: r.OverallStatus,
		})
		statuses = append(statuses, r.OverallStatus)
	}
	return &evalresult.EvalCaseResult{
		FinalEvalStatus:               status.Combine(statuses...),
		OverallEvalMetricResults:      overall,
		EvalMetricResultPerInvocation: perInvocation,
	}, nil
}

func failedCaseResult(setID string, evalCase *evalset.EvalCase, sessionID, userID string,
	err error) *evalresult.EvalCaseResult {
	return &evalresult.EvalCaseResult{
		EvalSetID:                     setID,
		EvalID:                        evalCase.EvalID,
		FinalEvalStatus:               status.EvalStatusFailed,
		ErrorMessage:                  err.Error(),
		OverallEvalMetricResults:      []*evalresult.EvalMetricResult{},
		EvalMetricResultPerInvocation: []*evalresult.EvalMetricResultPerInvocation{},
		SessionID:                     sessionID,
		UserID:                        userID,
	}
}

func now() *epochtime.EpochTime {
	return epochtime.New(time.Now())
}
