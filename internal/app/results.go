package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/poseplay/internal/events"
	"github.com/ayusman/poseplay/internal/plugin"
	"github.com/ayusman/poseplay/internal/session"
	"github.com/ayusman/poseplay/internal/store"
)

// completeSession records the finished game and hands it to subscribers.
// Storage, publishing and plugins run off the loop; a share URL comes back
// through the command queue.
func (a *App) completeSession(s session.State) {
	res := &store.Result{
		ID:           uuid.NewString(),
		SessionID:    s.SessionID,
		Speed:        string(a.settings.Speed),
		TotalTargets: s.Score.TotalTargets,
		Hits:         s.Score.Hits,
		Score:        s.Score.Score,
		Rank:         string(s.Score.Rank),
		CompletedAt:  a.clock.Now().UTC(),
	}
	a.resultID = res.ID

	log.Info().
		Str("session", res.SessionID).
		Str("result", res.ID).
		Int("hits", res.Hits).
		Float64("score", res.Score).
		Str("rank", res.Rank).
		Msg("session completed")

	sharing := a.settings.Sharing
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		a.recordResult(res, sharing)
	}()
}

func (a *App) recordResult(res *store.Result, sharing bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stored := false
	if a.store != nil {
		if err := a.store.Results().Create(res); err != nil {
			log.Error().Err(err).Str("result", res.ID).Msg("failed to store result")
		} else {
			stored = true
		}
	}

	if err := a.publisher.Publish(ctx, events.TypeResult, res); err != nil {
		log.Warn().Err(err).Str("result", res.ID).Msg("result event not published")
	}

	if !sharing {
		return
	}

	url := a.runSharePlugins(ctx, res, stored)
	if url == "" {
		return
	}

	id := res.ID
	select {
	case a.commands <- func() { a.setShareURL(id, url) }:
	case <-a.done:
	case <-ctx.Done():
	}
}

// runSharePlugins runs every plugin subscribed to session completion and
// returns the first URL produced.
func (a *App) runSharePlugins(ctx context.Context, res *store.Result, stored bool) string {
	payload, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal result for plugins")
		return ""
	}

	var first string
	for _, p := range a.pluginMgr.ForEvent(plugin.EventSessionCompleted) {
		resp, err := a.pluginExec.Execute(ctx, p, &plugin.Request{
			Event:   plugin.EventSessionCompleted,
			Config:  p.Manifest.Config,
			Payload: payload,
		})
		if err != nil {
			log.Warn().Err(err).Str("plugin", p.Manifest.Name).Msg("share plugin failed")
			continue
		}
		if !resp.Success {
			log.Warn().Str("plugin", p.Manifest.Name).Str("error", resp.Error).Msg("share plugin refused")
			continue
		}
		if resp.URL == "" {
			continue
		}

		if stored {
			share := &store.Share{ResultID: res.ID, Plugin: p.Manifest.Name, URL: resp.URL}
			if err := a.store.Shares().Add(share); err != nil {
				log.Warn().Err(err).Str("plugin", p.Manifest.Name).Msg("failed to store share link")
			}
		}
		if first == "" {
			first = resp.URL
		}
	}
	return first
}

// setShareURL attaches a share URL if the session that produced it is still on screen.
func (a *App) setShareURL(resultID, url string) {
	if a.resultID != resultID {
		log.Debug().Str("result", resultID).Msg("share link arrived after reset")
		return
	}
	a.shareURL = url
	a.publishSnapshot()
}
