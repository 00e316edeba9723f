package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"voxverify/audio"
	"voxverify/decoder"
	"voxverify/visualizer"
)

// Session holds the resources acquired on the first toggle. They live until
// Close.
type Session struct {
	ID         string
	Audio      audio.Context
	Analyser   *audio.Analyser
	Module     decoder.Module
	Instance   decoder.Instance
	Params     decoder.Parameters
	Visualizer *visualizer.Visualizer

	hasInstance bool
	recordings  int
	verified    int
}

func newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Initialized reports whether audio, analysis and the decode engine are up.
func (s *Session) Initialized() bool {
	return s != nil && s.Audio != nil && s.Analyser != nil && s.Module != nil
}

func (s *Session) HasInstance() bool { return s != nil && s.hasInstance }

func (s *Session) UsingPrimaryVisualizer() bool {
	return s != nil && s.Visualizer != nil && s.Visualizer.Kind() == visualizer.KindPrimary
}

// setupDecoder loads the engine once and creates an instance at rate.
func (s *Session) setupDecoder(ctx context.Context, factory decoder.Factory, rate int) error {
	if factory == nil {
		return decoder.ErrNoEngine
	}
	if s.Module == nil {
		m, err := factory(ctx)
		if err != nil {
			return fmt.Errorf("load decoder: %w", err)
		}
		s.Module = m
	}
	inst, params, err := decoder.Setup(s.Module, float64(rate))
	if err != nil {
		return err
	}
	s.Instance = inst
	s.Params = params
	s.hasInstance = true
	return nil
}

func (s *Session) freeDecoder() {
	if s.Module != nil && s.hasInstance {
		s.Module.Free(s.Instance)
	}
	s.hasInstance = false
}

// release frees everything acquired so far. Safe on a partial session.
func (s *Session) release() {
	if s.Visualizer != nil {
		s.Visualizer.Dispose()
		s.Visualizer = nil
	}
	s.freeDecoder()
	s.Module = nil
	if s.Audio != nil {
		s.Audio.Close()
		s.Audio = nil
	}
	s.Analyser = nil
}
