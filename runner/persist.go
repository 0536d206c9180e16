//
// Tencent is pleased to support the open source community by making whisky-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// whisky-agent-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
	"trpc.group/trpc-go/whisky-agent-go/event"
	"trpc.group/trpc-go/whisky-agent-go/log"
	"trpc.group/trpc-go/whisky-agent-go/session"
)

// AuthorUser is the author of the event holding the user message.
const AuthorUser = string(genai.RoleUser)

// WithSessionEvents wraps r so every turn is kept in the session event log:
// the user message is appended before r runs and every complete event of r
// is appended before it is forwarded. A turn on a session that does not
// exist runs without being recorded.
func WithSessionEvents(r Runner, sessions session.Service, appName string) Runner {
	return Func(func(ctx context.Context, userID, sessionID string,
		message *genai.Content) (<-chan *event.Event, error) {
		key := session.Key{AppName: appName, UserID: userID, SessionID: sessionID}
		sess, err := sessions.GetSession(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("runner: get session %s: %w", sessionID, err)
		}
		if sess == nil {
			log.Warnf("runner: session %s of user %s not found, turn not recorded", sessionID, userID)
			return r.Run(ctx, userID, sessionID, message)
		}
		if message != nil {
			userEvt := event.New(uuid.NewString(), AuthorUser, message)
			if err := sessions.AppendEvent(ctx, sess, userEvt); err != nil {
				return nil, fmt.Errorf("runner: append user message to session %s: %w", sessionID, err)
			}
		}

		in, err := r.Run(ctx, userID, sessionID, message)
		if err != nil {
			return nil, err
		}
		out := make(chan *event.Event, cap(in))
		go func() {
			defer close(out)
			for {
				select {
				case ev, ok := <-in:
					if !ok {
						return
					}
					if ev != nil && !ev.Partial {
						if err := sessions.AppendEvent(ctx, sess, ev); err != nil {
							log.Errorf("runner: append event %s to session %s failed: %v", ev.ID, sessionID, err)
						}
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out, nil
	})
}
