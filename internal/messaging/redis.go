package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/light-controller/internal/model"
)

const (
	StateHash    = "light"
	TurnCmdList  = "light:turn"
	LightCmdList = "light:mode"

	turnField  = "turn:mode"
	lightField = "light:mode"
)

// Controller is what the command listeners drive.
type Controller interface {
	SetLightMode(mode model.LightMode)
	SetTurnMode(mode model.TurnMode)
}

// Bridge mirrors mode changes into a redis hash and applies commands pushed onto redis lists.
type Bridge struct {
	client *redis.Client
	ctrl   Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	publish func(hash, field, value, channel, payload string) error
}

func NewBridge(addr string) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		ctx:    ctx,
		cancel: cancel,
	}
	b.publish = b.publishHashSet
	return b
}

func (b *Bridge) Connect() error {
	log.Info().Str("addr", b.client.Options().Addr).Msg("Connecting to redis")

	if err := b.client.Ping(b.ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info().Msg("Connected to redis")
	return nil
}

// StartListening spawns one BRPOP loop per command list, applying commands to ctrl.
func (b *Bridge) StartListening(ctrl Controller) {
	b.ctrl = ctrl
	b.wg.Add(2)
	go b.listCommandListener(TurnCmdList, b.handleTurnCommand)
	go b.listCommandListener(LightCmdList, b.handleLightCommand)
}

func (b *Bridge) listCommandListener(key string, handler func(string) error) {
	defer b.wg.Done()
	log.Info().Str("list", key).Msg("Starting redis command listener")

	for {
		if b.ctx.Err() != nil {
			log.Info().Str("list", key).Msg("Redis command listener stopped")
			return
		}

		// short timeout so cancellation is noticed even against a quiet list
		result, err := b.client.BRPop(b.ctx, 5*time.Second, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				log.Info().Str("list", key).Msg("Redis command listener stopped")
				return
			}
			log.Warn().Err(err).Str("list", key).Msg("Error reading redis command list")
			time.Sleep(time.Second)
			continue
		}

		// BRPOP returns [key, value]
		if len(result) < 2 {
			continue
		}
		log.Debug().Str("list", key).Str("value", result[1]).Msg("Received redis command")
		if err := handler(result[1]); err != nil {
			log.Warn().Err(err).Str("list", key).Msg("Error handling redis command")
		}
	}
}

func (b *Bridge) handleTurnCommand(value string) error {
	mode, err := model.ParseTurnMode(value)
	if err != nil {
		return fmt.Errorf("invalid turn command: %w", err)
	}
	b.ctrl.SetTurnMode(mode)
	return nil
}

func (b *Bridge) handleLightCommand(value string) error {
	mode, err := model.ParseLightMode(value)
	if err != nil {
		return fmt.Errorf("invalid light command: %w", err)
	}
	b.ctrl.SetLightMode(mode)
	return nil
}

func (b *Bridge) LightModeChanged(mode model.LightMode) {
	if err := b.publish(StateHash, lightField, mode.String(), StateHash, lightField); err != nil {
		log.Warn().Err(err).Str("mode", mode.String()).Msg("Failed to publish light mode")
	}
}

func (b *Bridge) TurnModeChanged(mode model.TurnMode) {
	if err := b.publish(StateHash, turnField, mode.String(), StateHash, turnField); err != nil {
		log.Warn().Err(err).Str("mode", mode.String()).Msg("Failed to publish turn mode")
	}
}

// publishHashSet updates a hash field and notifies subscribers in one round trip.
func (b *Bridge) publishHashSet(hash, field, value, channel, payload string) error {
	pipe := b.client.Pipeline()
	pipe.HSet(b.ctx, hash, field, value)
	pipe.Publish(b.ctx, channel, payload)
	_, err := pipe.Exec(b.ctx)
	return err
}

func (b *Bridge) Close() error {
	log.Info().Msg("Closing redis bridge")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(6 * time.Second):
		log.Warn().Msg("Redis listeners did not exit in time")
	}

	return b.client.Close()
}
